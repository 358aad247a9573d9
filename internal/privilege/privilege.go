// Package privilege reports whether peerwatch runs with the rights the host
// tools need, and hands files written under sudo back to the invoking user.
package privilege

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrNotSudo is returned by SudoUser outside a sudo session.
var ErrNotSudo = errors.New("not running under sudo")

// UserIDs identifies the user that invoked sudo.
type UserIDs struct {
	Username string
	UID      int
	GID      int
}

// IsRoot reports whether the process has an effective UID of 0. Without it,
// ss cannot attribute sockets of other users and fail2ban-client is usually
// refused by the server socket.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// IsRunningUnderSudo checks for the SUDO_USER environment variable.
func IsRunningUnderSudo() bool {
	return os.Getenv("SUDO_USER") != ""
}

// SudoUser returns the identity recorded by sudo in SUDO_USER, SUDO_UID and
// SUDO_GID.
func SudoUser() (*UserIDs, error) {
	name := os.Getenv("SUDO_USER")
	if name == "" {
		return nil, ErrNotSudo
	}

	uidStr, gidStr := os.Getenv("SUDO_UID"), os.Getenv("SUDO_GID")
	if uidStr == "" || gidStr == "" {
		return nil, fmt.Errorf("SUDO_USER set but SUDO_UID or SUDO_GID missing")
	}

	uid, err := strconv.Atoi(uidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SUDO_UID: %w", err)
	}
	gid, err := strconv.Atoi(gidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SUDO_GID: %w", err)
	}

	return &UserIDs{Username: name, UID: uid, GID: gid}, nil
}

// FixFileOwnership chowns paths to the sudo user when running as root under
// sudo. Otherwise it does nothing. Missing paths are skipped.
func FixFileOwnership(paths ...string) error {
	if !IsRoot() || !IsRunningUnderSudo() {
		return nil
	}

	u, err := SudoUser()
	if err != nil {
		return fmt.Errorf("failed to detect original user: %w", err)
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Chown(p, u.UID, u.GID); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to chown %s to %d:%d: %w", p, u.UID, u.GID, err)
		}
	}
	return nil
}
