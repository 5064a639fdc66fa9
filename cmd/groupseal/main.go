// Command groupseal is a small hosting tool around the envelope protocol
// library: it encrypts a file once for a set of identities, decrypts, and
// mutates group membership. The wallet identity is derived from a BIP-39
// mnemonic in GROUPSEAL_MNEMONIC.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/Layr-Labs/groupseal/internal/config"
	"github.com/Layr-Labs/groupseal/pkg/aead"
	"github.com/Layr-Labs/groupseal/pkg/envelope"
	"github.com/Layr-Labs/groupseal/pkg/wallet"
)

func main() {
	logger := log.New()
	logger.SetOutput(os.Stderr)

	app := cli.NewApp()
	app.Name = "groupseal"
	app.Usage = "encrypt a message once for a group of identities"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			logger.SetLevel(log.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "identity",
			Usage: "print this wallet's identity and fingerprint",
			Action: func(c *cli.Context) error {
				w, _, err := protocolEnv(logger)
				if err != nil {
					return err
				}
				id, err := w.Identity()
				if err != nil {
					return err
				}
				fmt.Printf("%s (fingerprint %s)\n", id, wallet.Fingerprint(id))
				return nil
			},
		},
		{
			Name:  "encrypt",
			Usage: "encrypt a file for one or more recipients",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "in", Usage: "plaintext input file"},
				cli.StringFlag{Name: "out", Usage: "envelope output file"},
				cli.StringSliceFlag{Name: "recipient", Usage: "recipient identity (hex), repeatable"},
				cli.StringSliceFlag{Name: "admin", Usage: "administrator identity (hex), repeatable"},
			},
			Action: func(c *cli.Context) error {
				_, setup, err := protocolEnv(logger)
				if err != nil {
					return err
				}
				message, err := os.ReadFile(c.String("in"))
				if err != nil {
					return err
				}
				recipients, err := parseIdentities(c.StringSlice("recipient"))
				if err != nil {
					return err
				}
				var admins []envelope.Identity
				if raw := c.StringSlice("admin"); len(raw) > 0 {
					if admins, err = parseIdentities(raw); err != nil {
						return err
					}
				}
				env, err := setup.protocol.Encrypt(setup.pctx, message, recipients, admins)
				if err != nil {
					return err
				}
				return os.WriteFile(c.String("out"), env, 0o600)
			},
		},
		{
			Name:  "decrypt",
			Usage: "decrypt an envelope addressed to this wallet",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "in", Usage: "envelope input file"},
				cli.StringFlag{Name: "out", Usage: "plaintext output file"},
			},
			Action: func(c *cli.Context) error {
				_, setup, err := protocolEnv(logger)
				if err != nil {
					return err
				}
				env, err := os.ReadFile(c.String("in"))
				if err != nil {
					return err
				}
				message, err := setup.protocol.Decrypt(setup.pctx, env)
				if err != nil {
					return err
				}
				return os.WriteFile(c.String("out"), message, 0o600)
			},
		},
		{
			Name:  "add",
			Usage: "add a participant to an existing envelope",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "in", Usage: "envelope input file"},
				cli.StringFlag{Name: "out", Usage: "envelope output file"},
				cli.StringFlag{Name: "participant", Usage: "identity to add (hex)"},
			},
			Action: func(c *cli.Context) error {
				_, setup, err := protocolEnv(logger)
				if err != nil {
					return err
				}
				env, err := os.ReadFile(c.String("in"))
				if err != nil {
					return err
				}
				id, err := envelope.ParseIdentity(c.String("participant"))
				if err != nil {
					return err
				}
				next, err := setup.protocol.AddParticipant(setup.pctx, env, id)
				if err != nil {
					return err
				}
				return os.WriteFile(c.String("out"), next, 0o600)
			},
		},
		{
			Name:  "remove",
			Usage: "remove a participant from an existing envelope (administrators only)",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "in", Usage: "envelope input file"},
				cli.StringFlag{Name: "out", Usage: "envelope output file"},
				cli.StringFlag{Name: "participant", Usage: "identity to remove (hex)"},
			},
			Action: func(c *cli.Context) error {
				_, setup, err := protocolEnv(logger)
				if err != nil {
					return err
				}
				env, err := os.ReadFile(c.String("in"))
				if err != nil {
					return err
				}
				id, err := envelope.ParseIdentity(c.String("participant"))
				if err != nil {
					return err
				}
				next, err := setup.protocol.RemoveParticipant(env, id)
				if err != nil {
					return err
				}
				return os.WriteFile(c.String("out"), next, 0o600)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

type setup struct {
	protocol *envelope.Protocol
	pctx     envelope.ProtocolContext
}

func protocolEnv(logger *log.Logger) (*wallet.Wallet, *setup, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	w, err := wallet.NewFromMnemonic(cfg.Mnemonic)
	if err != nil {
		return nil, nil, err
	}
	opts := []envelope.Option{envelope.WithLogger(logger)}
	if cfg.WrapConcurrency > 0 {
		opts = append(opts, envelope.WithWrapConcurrency(cfg.WrapConcurrency))
	}
	return w, &setup{
		protocol: envelope.New(w, aead.New(), opts...),
		pctx:     envelope.ProtocolContext{Domain: cfg.Domain, KeyID: cfg.KeyID},
	}, nil
}

func parseIdentities(raw []string) ([]envelope.Identity, error) {
	ids := make([]envelope.Identity, 0, len(raw))
	for _, s := range raw {
		id, err := envelope.ParseIdentity(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
