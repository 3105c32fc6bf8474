package models

import "encoding/json"

const PassFormatVersion = 1

// Имена файлов внутри бандла
const (
	FilePass      = "pass.json"
	FileManifest  = "manifest.json"
	FileSignature = "signature"

	FileIcon    = "icon.png"
	FileIcon2x  = "icon@2x.png"
	FileLogo    = "logo.png"
	FileLogo2x  = "logo@2x.png"
	FileStrip   = "strip.png"
	FileStrip2x = "strip@2x.png"
)

const (
	AlignLeft    = "PKTextAlignmentLeft"
	AlignCenter  = "PKTextAlignmentCenter"
	AlignRight   = "PKTextAlignmentRight"
	AlignNatural = "PKTextAlignmentNatural"

	BarcodeFormatQR = "PKBarcodeFormatQR"
)

type Field struct {
	Key           string `json:"key"`
	Label         string `json:"label,omitempty"`
	Value         string `json:"value"`
	TextAlignment string `json:"textAlignment,omitempty"`
	ChangeMessage string `json:"changeMessage,omitempty"`
}

// FieldGroups — блок стиля (storeCard) с группами полей
type FieldGroups struct {
	HeaderFields    []Field `json:"headerFields,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// PassDocument — содержимое pass.json
type PassDocument struct {
	FormatVersion       int          `json:"formatVersion"`
	PassTypeIdentifier  string       `json:"passTypeIdentifier"`
	SerialNumber        string       `json:"serialNumber"`
	TeamIdentifier      string       `json:"teamIdentifier"`
	OrganizationName    string       `json:"organizationName"`
	Description         string       `json:"description"`
	LogoText            string       `json:"logoText,omitempty"`
	BackgroundColor     string       `json:"backgroundColor"`
	ForegroundColor     string       `json:"foregroundColor"`
	LabelColor          string       `json:"labelColor"`
	StoreCard           *FieldGroups `json:"storeCard"`
	Barcode             *Barcode     `json:"barcode,omitempty"`
	Barcodes            []Barcode    `json:"barcodes,omitempty"`
	WebServiceURL       string       `json:"webServiceURL,omitempty"`
	AuthenticationToken string       `json:"authenticationToken,omitempty"`
	ExpirationDate      string       `json:"expirationDate,omitempty"`
	Voided              bool         `json:"voided,omitempty"`
}

// CompactJSON — единственная сериализация pass.json: её хэшируют, её же кладут в архив
func (d PassDocument) CompactJSON() ([]byte, error) {
	return json.Marshal(d)
}
