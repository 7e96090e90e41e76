// Re-encrypts a key backup file under a new password, keeping its address and QR.
// Usage: go run ./cmd/rekey_backup --file agent.akey [--scrypt-n 18]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"

	"github.com/AlexZinkM/record-agent/agent"
	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/config"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/logx"
)

var logger = logging.MustGetLogger("rekey")

func main() {
	app := &cli.App{
		Name:  "rekey_backup",
		Usage: "re-encrypt a key backup under a new password",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Required: true,
				Usage:    "key backup file",
			},
			&cli.UintFlag{
				Name:  "scrypt-n",
				Value: 18,
				Usage: "log2 of the scrypt cost for the new ciphertext",
			},
		},
		Before: func(c *cli.Context) error {
			_, err := logx.Configure(logx.Options{Level: "INFO"})
			return err
		},
		Action: rekey,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func rekey(c *cli.Context) error {
	logN := c.Uint("scrypt-n")
	if logN == 0 || logN > 30 {
		return errors.New("scrypt-n must be between 1 and 30")
	}
	m := account.NewManager(crypto.NewBN254(crypto.WithScrypt(uint8(logN), 8, 1)))

	oldPassword, err := config.ReadPassword("Current backup password: ")
	if err != nil {
		return err
	}
	defer clear(oldPassword)

	newPassword, err := config.ReadPassword("New backup password: ")
	if err != nil {
		return err
	}
	defer clear(newPassword)
	repeat, err := config.ReadPassword("Repeat new backup password: ")
	if err != nil {
		return err
	}
	defer clear(repeat)
	if string(newPassword) != string(repeat) {
		return errors.New("passwords do not match")
	}

	addr, err := agent.Rekey(m, c.String("file"), oldPassword, newPassword)
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}
