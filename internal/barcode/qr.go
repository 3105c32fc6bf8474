package barcode

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// RenderQR draws message as a size×size QR code. The character set hint
// follows enc so scanners decode the same bytes the wallet shows.
func RenderQR(message string, enc Encoding, size int) (image.Image, error) {
	if err := enc.Check(message); err != nil {
		return nil, err
	}
	charset := "ISO-8859-1"
	if enc == EncodingUTF8 {
		charset = "UTF-8"
	}
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_CHARACTER_SET:    charset,
		gozxing.EncodeHintType_ERROR_CORRECTION: "M",
		gozxing.EncodeHintType_MARGIN:           2,
	}
	m, err := qrcode.NewQRCodeWriter().Encode(message, gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return m, nil
}

// ScanQR decodes the first QR code found in img.
func ScanQR(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("creating bitmap: %w", err)
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("no QR code found in image: %w", err)
	}
	return result.GetText(), nil
}
