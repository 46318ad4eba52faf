package main

import (
	"fmt"

	"github.com/jrsteele09/buddy-auth/users"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// HashKeyCmd prints the bcrypt hash that guards whitelist administration.
type HashKeyCmd struct {
	Key  string `arg:"" help:"The admin key to hash."`
	Cost int    `help:"bcrypt cost." default:"12"`
}

func (c *HashKeyCmd) Run() error {
	if err := users.ValidateAdminKeyStrength(c.Key); err != nil {
		return err
	}
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return errors.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	hash, err := users.HashAdminKey(c.Key, c.Cost)
	if err != nil {
		return errors.Wrap(err, "[HashKeyCmd.Run] hashing admin key")
	}
	fmt.Println(hash)
	return nil
}
