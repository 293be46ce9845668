package records

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/models"
)

// FetchProfile returns the profile for userID, or nil when the row does not
// exist yet (the backend creates it asynchronously after sign-up).
func FetchProfile(ctx context.Context, gw gateway.Gateway, userID string) (*models.Profile, error) {
	rec, err := gw.GetRecord(ctx, gateway.TableProfiles, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", userID, err)
	}
	if rec == nil {
		return nil, nil
	}
	p, err := decode[models.Profile](gateway.TableProfiles, rec)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns every profile row.
func ListProfiles(ctx context.Context, gw gateway.Gateway) ([]models.Profile, error) {
	rows, err := gw.ListRecords(ctx, gateway.TableProfiles, nil)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]models.Profile, 0, len(rows))
	for _, rec := range rows {
		p, err := decode[models.Profile](gateway.TableProfiles, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CompleteOnboarding marks the user's onboarding as done.
func CompleteOnboarding(ctx context.Context, gw gateway.Gateway, userID string) error {
	err := gw.UpsertRecord(ctx, gateway.TableProfiles, gateway.Record{
		"id":            userID,
		"has_onboarded": true,
	})
	if err != nil {
		return fmt.Errorf("complete onboarding %s: %w", userID, err)
	}
	return nil
}

// SetBanned sets or clears the ban flag on a profile.
func SetBanned(ctx context.Context, gw gateway.Gateway, userID string, banned bool) error {
	err := gw.UpsertRecord(ctx, gateway.TableProfiles, gateway.Record{
		"id":        userID,
		"is_banned": banned,
	})
	if err != nil {
		return fmt.Errorf("set banned %s: %w", userID, err)
	}
	return nil
}
