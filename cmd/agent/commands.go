package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/AlexZinkM/record-agent/agent"
	"github.com/AlexZinkM/record-agent/internal/api"
	"github.com/AlexZinkM/record-agent/internal/common"
	"github.com/AlexZinkM/record-agent/internal/config"
	"github.com/AlexZinkM/record-agent/internal/engine"
	"github.com/AlexZinkM/record-agent/internal/handler"
	"github.com/AlexZinkM/record-agent/internal/keystore"
	"github.com/AlexZinkM/record-agent/internal/model"
	"github.com/AlexZinkM/record-agent/internal/scanner"
)

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Uint64Flag{
			Name:  "start",
			Value: 0,
			Usage: "first block height",
		},
		&cli.Uint64Flag{
			Name:  "end",
			Usage: "block height after the last one (default: latest height + 1)",
		},
	}
}

func feeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "priority-fee",
			Usage: "priority fee in microcredits, or credits with a decimal point",
		},
		&cli.StringFlag{
			Name:  "fee-record",
			Usage: "plaintext record paying the fee (default: public balance)",
		},
	}
}

// scanRange reads --start/--end, defaulting --end to the chain tip.
func scanRange(c *cli.Context) (scanner.Range, error) {
	start, end := c.Uint64("start"), c.Uint64("end")
	if !c.IsSet("end") {
		chain, err := newChainClient()
		if err != nil {
			return scanner.Range{}, err
		}
		latest, err := chain.LatestHeight(c.Context)
		if err != nil {
			return scanner.Range{}, err
		}
		end = uint64(latest) + 1
	}
	if start > uint64(^uint32(0)) || end > uint64(^uint32(0)) {
		return scanner.Range{}, fmt.Errorf("block heights must fit in 32 bits")
	}
	return scanner.Range{Start: uint32(start), End: uint32(end)}, nil
}

func parseFee(c *cli.Context) (uint64, error) {
	if !c.IsSet("priority-fee") {
		return 0, nil
	}
	return common.ParseMicrocredits(c.String("priority-fee"))
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "generate an account (or import one) into the key file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "import",
				Usage: "existing APrivateKey1... to back up instead of generating one",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Get()
			password, err := newPassword()
			if err != nil {
				return err
			}
			defer clear(password)

			if pk := c.String("import"); pk != "" {
				acc, err := manager.FromPrivateKeyString(pk)
				if err != nil {
					return err
				}
				if err := agent.SaveAccount(manager, acc, cfg.KeystorePath, cfg.Network, password); err != nil {
					return err
				}
				return printJSON(model.GenerateResponse{Success: true, Message: "Account imported", Address: acc.Address().String()})
			}

			addr, err := agent.GenerateWallet(manager, cfg.KeystorePath, cfg.Network, password)
			if err != nil {
				return err
			}
			return printJSON(model.GenerateResponse{Success: true, Message: "Account generated", Address: addr.String()})
		},
	}
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "print the address stored in the key file",
		Action: func(c *cli.Context) error {
			kf, err := keystore.Read(config.GetKeystorePath())
			if err != nil {
				return err
			}
			return printJSON(model.AddressResponse{Network: kf.Network, Address: kf.Address})
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "print the public balance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "currency",
				Usage: "also price the balance in this fiat currency (e.g. usd)",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := unlock()
			if err != nil {
				return err
			}
			b, err := a.Balance(c.Context, c.String("currency"))
			if err != nil {
				return err
			}
			return printJSON(b)
		},
	}
}

func unspentCommand() *cli.Command {
	return &cli.Command{
		Name:  "unspent",
		Usage: "find unspent records, newest first",
		Flags: append(rangeFlags(), &cli.Uint64Flag{
			Name:  "max",
			Usage: "stop once this many microcredits are found",
		}),
		Action: func(c *cli.Context) error {
			rng, err := scanRange(c)
			if err != nil {
				return err
			}
			var limit *uint64
			if c.IsSet("max") {
				v := c.Uint64("max")
				limit = &v
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			owned, err := a.UnspentRecords(c.Context, rng, limit)
			if err != nil {
				return err
			}
			return printJSON(agent.RecordsResponse(a.Address(), rng, owned))
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "list owned records, spent or not, oldest first",
		Flags: append(rangeFlags(), &cli.IntFlag{
			Name:  "max",
			Usage: "stop once this many records are found",
		}),
		Action: func(c *cli.Context) error {
			rng, err := scanRange(c)
			if err != nil {
				return err
			}
			var limit *int
			if c.IsSet("max") {
				v := c.Int("max")
				limit = &v
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			owned, err := a.ScanRecords(c.Context, rng, limit)
			if err != nil {
				return err
			}
			return printJSON(agent.RecordsResponse(a.Address(), rng, owned))
		},
	}
}

func programRecordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "program-records",
		Usage: "list owned records output by a program",
		Flags: append(rangeFlags(),
			&cli.StringFlag{
				Name:     "program",
				Required: true,
				Usage:    "program id, e.g. token.aleo",
			},
			&cli.BoolFlag{
				Name:  "unspent-only",
				Usage: "drop spent records",
			},
		),
		Action: func(c *cli.Context) error {
			rng, err := scanRange(c)
			if err != nil {
				return err
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			found, err := a.ProgramRecords(c.Context, rng, c.String("program"), c.Bool("unspent-only"))
			if err != nil {
				return err
			}
			return printJSON(agent.ProgramRecordsResponse(c.String("program"), found))
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "send credits",
		Flags: append(feeFlags(),
			&cli.StringFlag{
				Name:     "variant",
				Required: true,
				Usage:    "private, private_to_public, public_to_private or public",
			},
			&cli.StringFlag{
				Name:     "to",
				Required: true,
				Usage:    "recipient address",
			},
			&cli.StringFlag{
				Name:     "amount",
				Required: true,
				Usage:    "amount in microcredits, or credits with a decimal point",
			},
			&cli.StringFlag{
				Name:  "record",
				Usage: "plaintext record to spend (private variants)",
			},
		),
		Action: func(c *cli.Context) error {
			req, err := agent.ParseTransfer(manager, &model.TransferRequest{
				Variant:     c.String("variant"),
				ToAddress:   c.String("to"),
				Amount:      c.String("amount"),
				PriorityFee: c.String("priority-fee"),
				Record:      c.String("record"),
				FeeRecord:   c.String("fee-record"),
			})
			if err != nil {
				return err
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			txID, err := a.Transfer(c.Context, req)
			if err != nil {
				return err
			}
			return printJSON(model.TransferResponse{TxID: txID})
		},
	}
}

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "deploy a program from a source file or a directory holding main.aleo",
		Flags: append(feeFlags(), &cli.StringFlag{
			Name:     "path",
			Required: true,
			Usage:    "program file or directory",
		}),
		Action: func(c *cli.Context) error {
			program, err := engine.LoadProgram(c.String("path"))
			if err != nil {
				return err
			}
			fee, err := parseFee(c)
			if err != nil {
				return err
			}
			feeRecord, err := agent.ParseFeeRecord(c.String("fee-record"))
			if err != nil {
				return err
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			txID, err := a.DeployProgram(c.Context, program, fee, feeRecord)
			if err != nil {
				return err
			}
			return printJSON(model.TxResponse{TxID: txID})
		},
	}
}

func executeCommand() *cli.Command {
	return &cli.Command{
		Name:  "execute",
		Usage: "call a function of a deployed program",
		Flags: append(feeFlags(),
			&cli.StringFlag{
				Name:     "program",
				Required: true,
				Usage:    "program id",
			},
			&cli.StringFlag{
				Name:     "function",
				Required: true,
				Usage:    "function name",
			},
			&cli.StringSliceFlag{
				Name:  "input",
				Usage: "input value, repeat in call order",
			},
		),
		Action: func(c *cli.Context) error {
			var inputs []engine.Value
			for _, s := range c.StringSlice("input") {
				v, err := engine.ParseValue(s)
				if err != nil {
					return err
				}
				inputs = append(inputs, v)
			}
			fee, err := parseFee(c)
			if err != nil {
				return err
			}
			feeRecord, err := agent.ParseFeeRecord(c.String("fee-record"))
			if err != nil {
				return err
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			txID, err := a.ExecuteProgram(c.Context, c.String("program"), c.String("function"), inputs, fee, feeRecord)
			if err != nil {
				return err
			}
			return printJSON(model.TxResponse{TxID: txID})
		},
	}
}

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "transactions",
		Usage: "print the account's transaction history",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "program", Usage: "only this program"},
			&cli.StringFlag{Name: "status", Usage: "accepted or rejected"},
		},
		Action: func(c *cli.Context) error {
			var req model.LogRequest
			if v := c.String("program"); v != "" {
				req.Program = &v
			}
			if v := c.String("status"); v != "" {
				req.Status = &v
			}
			a, err := unlock()
			if err != nil {
				return err
			}
			resp, err := a.Transactions(c.Context, &req)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the HTTP API",
		Action: func(c *cli.Context) error {
			cfg := config.Get()
			if err := config.PromptForPassword(); err != nil {
				return err
			}

			h, err := handler.NewAgentHandler(manager, cfg.KeystorePath, cfg.Network, buildAgent)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           api.SetupRouter(h),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Infof("listening on %s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
