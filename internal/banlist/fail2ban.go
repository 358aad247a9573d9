// Package banlist reads the set of currently banned addresses from fail2ban.
//
// The provider fails open: if fail2ban is missing, unreachable or prints
// something unexpected, the result is an empty set and the scan carries on
// as if nothing were banned.
package banlist

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/sys/command"
)

// DefaultClient is the fail2ban control binary.
const DefaultClient = "fail2ban-client"

var (
	jailListRe = regexp.MustCompile(`Jail list:\s*(.*)`)
	bannedRe   = regexp.MustCompile(`Banned IP list:\s*(.*)`)
)

// Provider returns the addresses that must not be tracked.
type Provider interface {
	Banned(ctx context.Context) peer.IPSet
}

// Fail2ban queries fail2ban-client for every jail's ban list.
type Fail2ban struct {
	client string
	runner command.Runner
	logger zerolog.Logger
}

// NewFail2ban creates a provider running client through runner.
func NewFail2ban(client string, runner command.Runner, logger zerolog.Logger) *Fail2ban {
	if client == "" {
		client = DefaultClient
	}
	return &Fail2ban{
		client: client,
		runner: runner,
		logger: logger.With().Str("component", "banlist").Logger(),
	}
}

// Banned returns the union of banned IPs across all jails.
func (f *Fail2ban) Banned(ctx context.Context) peer.IPSet {
	banned := peer.NewIPSet()

	out, err := f.runner.Run(ctx, f.client, "status")
	if err != nil {
		f.logger.Warn().Err(err).Msg("Ban list unavailable, treating nothing as banned")
		return banned
	}

	jails, ok := ParseJailList(string(out))
	if !ok {
		f.logger.Warn().Msg("No jail list in fail2ban status output")
		return banned
	}

	for _, jail := range jails {
		out, err := f.runner.Run(ctx, f.client, "status", jail)
		if err != nil {
			f.logger.Warn().Err(err).Str("jail", jail).Msg("Skipping jail")
			continue
		}

		ips, ok := ParseBannedIPs(string(out))
		if !ok {
			f.logger.Debug().Str("jail", jail).Msg("No banned IP list in jail status")
			continue
		}
		for _, ip := range ips {
			banned.Add(ip)
		}
	}

	f.logger.Debug().Int("jails", len(jails)).Int("banned", len(banned)).Msg("Loaded ban list")
	return banned
}

// ParseJailList extracts jail names from `fail2ban-client status` output.
func ParseJailList(out string) ([]string, bool) {
	m := jailListRe.FindStringSubmatch(out)
	if m == nil {
		return nil, false
	}

	var jails []string
	for _, j := range strings.Split(m[1], ",") {
		if j = strings.TrimSpace(j); j != "" {
			jails = append(jails, j)
		}
	}
	return jails, true
}

// ParseBannedIPs extracts addresses from `fail2ban-client status <jail>` output.
func ParseBannedIPs(out string) ([]string, bool) {
	m := bannedRe.FindStringSubmatch(out)
	if m == nil {
		return nil, false
	}
	return strings.Fields(m[1]), true
}

// Static is a fixed ban list.
type Static peer.IPSet

// Banned returns a copy of the fixed set.
func (s Static) Banned(context.Context) peer.IPSet {
	out := make(peer.IPSet, len(s))
	for ip := range s {
		out.Add(ip)
	}
	return out
}
