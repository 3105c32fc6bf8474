package main

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

type verifyReport struct {
	Path           string    `json:"path"`
	SerialNumber   string    `json:"serial_number"`
	PassType       string    `json:"pass_type_identifier"`
	CacheValidator string    `json:"etag"`
	Files          []fileRow `json:"files"`
	Signer         string    `json:"signer"`
	SigningTime    string    `json:"signing_time,omitempty"`
	Voided         bool      `json:"voided"`
}

type fileRow struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func newVerifyCmd() *cobra.Command {
	var rootsPath string
	cmd := &cobra.Command{
		Use:   "verify <bundle.pkpass>",
		Short: "Check manifest digests and the detached signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var roots *x509.CertPool
			if rootsPath != "" {
				pem, err := os.ReadFile(rootsPath)
				if err != nil {
					return err
				}
				roots = x509.NewCertPool()
				if !roots.AppendCertsFromPEM(pem) {
					return fmt.Errorf("no certificates in %s", rootsPath)
				}
			}
			b, err := bundle.Open(data)
			if err != nil {
				return err
			}
			info, err := b.Verify(roots)
			if err != nil {
				return err
			}
			doc, err := b.Document()
			if err != nil {
				return fmt.Errorf("parse pass.json: %w", err)
			}
			etag, err := crypto.CacheValidator(b.Files[models.FileManifest])
			if err != nil {
				return err
			}

			rep := verifyReport{
				Path: args[0], SerialNumber: doc.SerialNumber, PassType: doc.PassTypeIdentifier,
				CacheValidator: etag, Signer: info.Signer, Voided: doc.Voided,
			}
			if !info.SigningTime.IsZero() {
				rep.SigningTime = info.SigningTime.Format("2006-01-02 15:04:05 MST")
			}
			for _, name := range b.Order {
				rep.Files = append(rep.Files, fileRow{Name: name, Size: len(b.Files[name])})
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), rep)
			}

			w := cmd.OutOrStdout()
			printHeader(w, "Bundle")
			printField(w, "Serial", rep.SerialNumber)
			printField(w, "Pass type", rep.PassType)
			printField(w, "ETag", rep.CacheValidator)
			printField(w, "Signer", rep.Signer)
			if rep.SigningTime != "" {
				printField(w, "Signed", rep.SigningTime)
			}
			if rep.Voided {
				printField(w, "Voided", "yes")
			}
			printHeader(w, "Files")
			for _, f := range rep.Files {
				fmt.Fprintf(w, "  %-24s %s\n", f.Name, dimColor.Sprint(humanize.Bytes(uint64(f.Size))))
			}
			if roots == nil {
				dimColor.Fprintln(w, "chain not checked (pass --roots to validate against WWDR)")
			}
			successColor.Fprintln(w, "✓ signature and digests valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&rootsPath, "roots", "", "PEM file with trusted roots (WWDR)")
	return cmd
}

func newETagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "etag <bundle.pkpass>",
		Short: "Print the cache validator derived from the bundle manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			b, err := bundle.Open(data)
			if err != nil {
				return err
			}
			raw, ok := b.Files[models.FileManifest]
			if !ok {
				return bundle.ErrManifestMissing
			}
			etag, err := crypto.CacheValidator(raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), etag)
			return nil
		},
	}
}
