package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vbncursed/vkr/pass-service/internal/assets"
	"github.com/vbncursed/vkr/pass-service/internal/barcode"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/catalog"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/passdata"
	"github.com/vbncursed/vkr/pass-service/internal/registry"
	"github.com/vbncursed/vkr/pass-service/internal/repo"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
	"github.com/vbncursed/vkr/pass-service/internal/testutil"
)

type generateOpts struct {
	seed, customer, offer, wallet string
	out                           string
	certs                         crypto.LoadOptions
	dev                           bool
	secret                        string
	passType, team, org           string
	webServiceURL                 string
	prefix, encoding, salt        string
}

type generateReport struct {
	Out            string `json:"out"`
	SerialNumber   string `json:"serial_number"`
	CacheValidator string `json:"etag"`
	Size           int    `json:"size"`
}

func newGenerateCmd() *cobra.Command {
	var o generateOpts
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a signed bundle from a YAML catalog seed without a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := generate(cmd.Context(), o)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			w := cmd.OutOrStdout()
			printHeader(w, "Pass written")
			printField(w, "File", rep.Out)
			printField(w, "Serial", rep.SerialNumber)
			printField(w, "ETag", rep.CacheValidator)
			printField(w, "Size", humanize.Bytes(uint64(rep.Size)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.seed, "seed", "", "YAML catalog seed (required)")
	f.StringVar(&o.customer, "customer", "", "customer id (required)")
	f.StringVar(&o.offer, "offer", "", "offer id (required)")
	f.StringVar(&o.wallet, "wallet", string(models.WalletApple), "wallet type")
	f.StringVarP(&o.out, "out", "o", "pass.pkpass", "output file")
	f.StringVar(&o.certs.P12Path, "p12", "", "signer .p12")
	f.StringVar(&o.certs.P12Password, "p12-password", "", "password for --p12")
	f.StringVar(&o.certs.CertPath, "cert", "", "signer certificate PEM")
	f.StringVar(&o.certs.KeyPath, "key", "", "signer key PEM")
	f.StringVar(&o.certs.ChainPath, "chain", "", "WWDR chain PEM")
	f.BoolVar(&o.dev, "dev", false, "sign with throwaway certificates")
	f.StringVar(&o.secret, "secret", os.Getenv("TOKEN_SECRET"), "customer token secret")
	f.StringVar(&o.passType, "pass-type", "", "pass type identifier (default: from certificate)")
	f.StringVar(&o.team, "team", "", "team identifier (default: from certificate)")
	f.StringVar(&o.org, "org", "Loyalty", "organization name")
	f.StringVar(&o.webServiceURL, "web-service-url", "", "enables updates when set")
	f.StringVar(&o.prefix, "prefix", "LP1:", "barcode prefix")
	f.StringVar(&o.encoding, "encoding", string(barcode.EncodingASCII), "barcode encoding")
	f.StringVar(&o.salt, "salt", "", "offer hash salt")
	_ = cmd.MarkFlagRequired("seed")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("offer")
	return cmd
}

func generate(ctx context.Context, o generateOpts) (generateReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	certs, err := loadSigner(o)
	if err != nil {
		return generateReport{}, err
	}
	if err := certs.Validate(time.Now(), o.passType, o.team); err != nil {
		return generateReport{}, err
	}
	engine, err := crypto.NewEngine(certs)
	if err != nil {
		return generateReport{}, err
	}
	if len(o.secret) < barcode.MinSecretSize {
		return generateReport{}, fmt.Errorf("--secret (or TOKEN_SECRET) must be at least %d bytes", barcode.MinSecretSize)
	}
	sealer, err := barcode.NewTokenSealer([]byte(o.secret))
	if err != nil {
		return generateReport{}, err
	}
	enc, err := barcode.ParseEncoding(o.encoding)
	if err != nil {
		return generateReport{}, err
	}
	asm, err := passdata.New(passdata.Config{
		PassTypeIdentifier: certs.PassTypeIdentifier,
		TeamIdentifier:     certs.TeamIdentifier,
		OrganizationName:   o.org,
		WebServiceURL:      o.webServiceURL,
		BarcodeEncoding:    enc,
		BarcodePrefix:      o.prefix,
		OfferHashSalt:      o.salt,
	}, sealer)
	if err != nil {
		return generateReport{}, err
	}

	seed, err := catalog.LoadSeedFile(o.seed)
	if err != nil {
		return generateReport{}, err
	}
	cat := catalog.NewMemory()
	if err := cat.Apply(ctx, seed); err != nil {
		return generateReport{}, err
	}
	svc, err := issvc.New(issvc.Deps{
		Catalog:   cat,
		Registry:  registry.New(repo.NewMemoryStore()),
		Assembler: asm,
		Assets:    assets.NewPipeline(assets.HTTPFetcher{}, assets.FetchOptions{}, nil),
		Signer:    engine,
		Packager:  bundle.Packager{},
	})
	if err != nil {
		return generateReport{}, err
	}
	wt, ok := models.ParseWalletType(o.wallet)
	if !ok {
		return generateReport{}, fmt.Errorf("unknown wallet type %q", o.wallet)
	}
	b, err := svc.Issue(ctx, issvc.IssueCommand{CustomerID: o.customer, OfferID: o.offer, WalletType: wt})
	if err != nil {
		return generateReport{}, err
	}
	if err := os.WriteFile(o.out, b.Data, 0o644); err != nil {
		return generateReport{}, err
	}
	return generateReport{Out: o.out, SerialNumber: b.SerialNumber, CacheValidator: b.CacheValidator, Size: len(b.Data)}, nil
}

func loadSigner(o generateOpts) (*crypto.CertificateBundle, error) {
	if o.dev {
		passType := o.passType
		if passType == "" {
			passType = testutil.PassTypeIdentifier
		}
		team := o.team
		if team == "" {
			team = testutil.TeamIdentifier
		}
		c, err := testutil.Generate(passType, team, time.Now().Add(-time.Hour), 24*time.Hour)
		if err != nil {
			return nil, err
		}
		return c.Bundle, nil
	}
	certs, err := crypto.LoadCertificateBundle(o.certs)
	if errors.Is(err, crypto.ErrNoCertificateData) {
		return nil, errors.New("pass --p12, --cert/--key or --dev")
	}
	return certs, err
}
