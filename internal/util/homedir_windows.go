package util

import "os/user"

// Homedir returns the home directory of the current user.
func Homedir() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
