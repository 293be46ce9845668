package records

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/models"
)

// InviteTTL is how long a freshly generated invite stays redeemable.
const InviteTTL = 7 * 24 * time.Hour

// NowFunc is mockable.
var NowFunc = time.Now

// inviteRow is the invite as stored by the backend.
type inviteRow struct {
	ID        string     `json:"id" validate:"required"`
	Token     string     `json:"token" validate:"required"`
	Status    string     `json:"status" validate:"oneof=active used expired"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedBy string     `json:"created_by,omitempty"`
	UsedBy    string     `json:"used_by,omitempty"`
}

func (r inviteRow) normalize() models.Invite {
	inv := models.Invite{
		ID:        r.ID,
		Token:     r.Token,
		Status:    models.InviteStatus(r.Status),
		Created:   r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		CreatedBy: r.CreatedBy,
		UsedBy:    r.UsedBy,
	}
	inv.Status = inv.EffectiveStatus(NowFunc())
	return inv
}

// CheckInvite looks up an active invite by token. It returns nil when the token
// is unknown, already used or expired.
func CheckInvite(ctx context.Context, gw gateway.Gateway, code string) (*models.Invite, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	rows, err := gw.ListRecords(ctx, gateway.TableInvites, gateway.Filter{"token": code})
	if err != nil {
		return nil, fmt.Errorf("check invite: %w", err)
	}
	for _, rec := range rows {
		row, err := decode[inviteRow](gateway.TableInvites, rec)
		if err != nil {
			return nil, err
		}
		inv := row.normalize()
		if inv.Status == models.InviteActive {
			return &inv, nil
		}
	}
	return nil, nil
}

// UseInvite marks the invite as redeemed by email. Unknown or inactive codes
// are ignored; the backend is the authority on invite validity.
func UseInvite(ctx context.Context, gw gateway.Gateway, code, email string) error {
	inv, err := CheckInvite(ctx, gw, code)
	if err != nil || inv == nil {
		return err
	}
	err = gw.UpsertRecord(ctx, gateway.TableInvites, gateway.Record{
		"id":      inv.ID,
		"status":  string(models.InviteUsed),
		"used_by": email,
	})
	if err != nil {
		return fmt.Errorf("use invite: %w", err)
	}
	return nil
}

// CreateInvite stores a new active invite.
func CreateInvite(ctx context.Context, gw gateway.Gateway, token, createdBy string) (models.Invite, error) {
	now := NowFunc().UTC()
	expires := now.Add(InviteTTL)
	row := inviteRow{
		ID:        uuid.New().String(),
		Token:     token,
		Status:    string(models.InviteActive),
		CreatedAt: now,
		ExpiresAt: &expires,
		CreatedBy: createdBy,
	}
	rec, err := toRecord(row)
	if err != nil {
		return models.Invite{}, err
	}
	if err := gw.UpsertRecord(ctx, gateway.TableInvites, rec); err != nil {
		return models.Invite{}, fmt.Errorf("create invite: %w", err)
	}
	return row.normalize(), nil
}

// ListInvites returns every invite, newest first.
func ListInvites(ctx context.Context, gw gateway.Gateway) ([]models.Invite, error) {
	rows, err := gw.ListRecords(ctx, gateway.TableInvites, nil)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	out := make([]models.Invite, 0, len(rows))
	for _, rec := range rows {
		row, err := decode[inviteRow](gateway.TableInvites, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, row.normalize())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

// DeleteInvite removes an invite.
func DeleteInvite(ctx context.Context, gw gateway.Gateway, id string) error {
	if err := gw.DeleteRecord(ctx, gateway.TableInvites, id); err != nil {
		return fmt.Errorf("delete invite %s: %w", id, err)
	}
	return nil
}
