package dto

import (
	"time"

	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

type CertificateInfo struct {
	Subject           string `json:"subject"`
	Issuer            string `json:"issuer"`
	SerialNumber      string `json:"serial_number"`
	FingerprintSHA256 string `json:"fingerprint_sha256"`
	NotBefore         string `json:"not_before"`
	NotAfter          string `json:"not_after"`
}

type SignerResponse struct {
	PassTypeIdentifier string            `json:"pass_type_identifier"`
	TeamIdentifier     string            `json:"team_identifier"`
	Certificates       []CertificateInfo `json:"certificates"`
}

// FromSignerInfo маппит сведения о подписанте; ключевой материал не
// покидает сервис.
func FromSignerInfo(info issvc.SignerInfo) SignerResponse {
	out := SignerResponse{
		PassTypeIdentifier: info.PassTypeIdentifier,
		TeamIdentifier:     info.TeamIdentifier,
		Certificates:       make([]CertificateInfo, 0, len(info.Certificates)),
	}
	for _, c := range info.Certificates {
		out.Certificates = append(out.Certificates, CertificateInfo{
			Subject:           c.Subject,
			Issuer:            c.Issuer,
			SerialNumber:      c.SerialNumber,
			FingerprintSHA256: c.FingerprintSHA256,
			NotBefore:         c.NotBefore.Format(time.RFC3339),
			NotAfter:          c.NotAfter.Format(time.RFC3339),
		})
	}
	return out
}
