package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbncursed/vkr/pass-service/internal/barcode"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
)

func newBarcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barcode",
		Short: "Render and scan pass barcodes",
	}
	cmd.AddCommand(newBarcodeRenderCmd(), newBarcodeScanCmd())
	return cmd
}

func newBarcodeRenderCmd() *cobra.Command {
	var (
		out, encoding, from string
		size                int
	)
	cmd := &cobra.Command{
		Use:   "render [message]",
		Short: "Write a QR PNG for a message or for the barcode inside a bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var message string
			switch {
			case from != "":
				data, err := os.ReadFile(from)
				if err != nil {
					return err
				}
				b, err := bundle.Open(data)
				if err != nil {
					return err
				}
				doc, err := b.Document()
				if err != nil {
					return err
				}
				if doc.Barcode == nil {
					return fmt.Errorf("%s has no barcode", from)
				}
				message = doc.Barcode.Message
				if doc.Barcode.MessageEncoding == "utf-8" {
					encoding = string(barcode.EncodingUTF8)
				}
			case len(args) == 1:
				message = args[0]
			default:
				return fmt.Errorf("pass a message or --from <bundle.pkpass>")
			}
			enc, err := barcode.ParseEncoding(encoding)
			if err != nil {
				return err
			}
			img, err := barcode.RenderQR(message, enc, size)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := png.Encode(f, img); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "barcode.png", "output PNG")
	cmd.Flags().StringVar(&encoding, "encoding", string(barcode.EncodingLatin1), "message encoding")
	cmd.Flags().StringVar(&from, "from", "", "take the message from a bundle's pass.json")
	cmd.Flags().IntVar(&size, "size", 300, "image size in pixels")
	return cmd
}

func newBarcodeScanCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Decode a QR image and split the loyalty payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening image file: %w", err)
			}
			defer f.Close()
			img, _, err := image.Decode(f)
			if err != nil {
				return fmt.Errorf("decoding image: %w", err)
			}
			text, err := barcode.ScanQR(img)
			if err != nil {
				return err
			}
			p, perr := barcode.Parse(text, prefix)
			if jsonOutput {
				out := map[string]any{"message": text}
				if perr == nil {
					out["customer_token"], out["offer_hash"] = p.CustomerToken, p.OfferHash
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			printHeader(w, "Barcode")
			printField(w, "Message", text)
			if perr != nil {
				dimColor.Fprintf(w, "  not a loyalty payload: %v\n", perr)
				return nil
			}
			printField(w, "Customer token", p.CustomerToken)
			printField(w, "Offer hash", p.OfferHash)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "LP1:", "expected payload prefix")
	return cmd
}
