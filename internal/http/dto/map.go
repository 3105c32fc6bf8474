package dto

import (
	"strings"
	"time"

	im "github.com/vbncursed/vkr/pass-service/internal/models"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

// ToCommand преобразует CreatePassRequest в команду use case
func (r CreatePassRequest) ToCommand() issvc.IssueCommand {
	wt, _ := im.ParseWalletType(r.WalletType)
	return issvc.IssueCommand{
		CustomerID: strings.TrimSpace(r.CustomerID),
		OfferID:    strings.TrimSpace(r.OfferID),
		WalletType: wt,
	}
}

// ToFetchCommand — условный запрос текущего бандла тройки
func (r CreatePassRequest) ToFetchCommand(ifNoneMatch string) issvc.FetchByTripleCommand {
	c := r.ToCommand()
	return issvc.FetchByTripleCommand{
		CustomerID:  c.CustomerID,
		OfferID:     c.OfferID,
		WalletType:  c.WalletType,
		IfNoneMatch: ifNoneMatch,
	}
}

func (r ChangeStatusRequest) ToCommand(serial string) issvc.ChangeStatusCommand {
	return issvc.ChangeStatusCommand{
		SerialNumber:          serial,
		Status:                im.PassStatus(r.Status),
		ScheduledExpirationAt: r.ScheduledExpirationAt,
	}
}

func FromIdentityRecord(rec im.IdentityRecord) ChangeStatusResponse {
	out := ChangeStatusResponse{
		SerialNumber: rec.SerialNumber,
		Status:       string(rec.Status),
		UpdatedAt:    rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rec.ScheduledExpirationAt != nil {
		out.ScheduledExpirationAt = rec.ScheduledExpirationAt.UTC().Format(time.RFC3339)
	}
	return out
}

func FromPushResult(r issvc.PushResult) PushResponse {
	return PushResponse{SerialNumber: r.SerialNumber, CacheValidator: r.CacheValidator, Changed: r.Changed}
}
