package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

type seedFile struct {
	Businesses []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"businesses"`
	Customers []struct {
		ID        string `yaml:"id"`
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
	} `yaml:"customers"`
	Offers []struct {
		ID             string      `yaml:"id"`
		BusinessID     string      `yaml:"business_id"`
		Title          string      `yaml:"title"`
		Description    string      `yaml:"description"`
		StampsRequired int         `yaml:"stamps_required"`
		RewardText     string      `yaml:"reward_text"`
		Terms          string      `yaml:"terms"`
		Design         *seedDesign `yaml:"design"`
	} `yaml:"offers"`
	Progress []struct {
		CustomerID      string    `yaml:"customer_id"`
		OfferID         string    `yaml:"offer_id"`
		StampsEarned    int       `yaml:"stamps_earned"`
		RewardsRedeemed int       `yaml:"rewards_redeemed"`
		UpdatedAt       time.Time `yaml:"updated_at"`
	} `yaml:"progress"`
}

type seedDesign struct {
	BackgroundColor string `yaml:"background_color"`
	ForegroundColor string `yaml:"foreground_color"`
	LabelColor      string `yaml:"label_color"`
	LogoText        string `yaml:"logo_text"`
	IconURL         string `yaml:"icon_url"`
	LogoURL         string `yaml:"logo_url"`
	StampImageURL   string `yaml:"stamp_image_url"`
	StampIcon       string `yaml:"stamp_icon"`
	ProgressLayout  string `yaml:"progress_layout"`
}

// LoadSeed parses a YAML seed document. Unknown keys are rejected.
func LoadSeed(r io.Reader) (Seed, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	s := Seed{Designs: make(map[string]models.Design)}
	for _, b := range f.Businesses {
		s.Businesses = append(s.Businesses, models.Business{ID: b.ID, Name: b.Name})
	}
	for _, c := range f.Customers {
		s.Customers = append(s.Customers, models.Customer{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName})
	}
	for _, o := range f.Offers {
		s.Offers = append(s.Offers, models.Offer{
			ID: o.ID, BusinessID: o.BusinessID, Title: o.Title, Description: o.Description,
			StampsRequired: o.StampsRequired, RewardText: o.RewardText, Terms: o.Terms,
		})
		if d := o.Design; d != nil {
			s.Designs[o.ID] = models.Design{
				BackgroundColor: d.BackgroundColor, ForegroundColor: d.ForegroundColor, LabelColor: d.LabelColor,
				LogoText: d.LogoText, IconURL: d.IconURL, LogoURL: d.LogoURL, StampImageURL: d.StampImageURL,
				StampIcon: d.StampIcon, ProgressLayout: d.ProgressLayout,
			}
		}
	}
	for _, p := range f.Progress {
		s.Progress = append(s.Progress, ProgressRow{
			CustomerID: p.CustomerID,
			OfferID:    p.OfferID,
			Progress:   models.Progress{StampsEarned: p.StampsEarned, RewardsRedeemed: p.RewardsRedeemed, UpdatedAt: p.UpdatedAt},
		})
	}
	return s, nil
}

func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, err
	}
	defer f.Close()
	return LoadSeed(f)
}
