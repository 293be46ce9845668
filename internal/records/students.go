package records

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/models"
)

// FetchAllStudents builds the admin roster, newest members first.
func FetchAllStudents(ctx context.Context, gw gateway.Gateway) ([]models.Student, error) {
	var (
		profiles []models.Profile
		counts   map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = ListProfiles(gctx, gw)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = CountProgress(gctx, gw)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	students := make([]models.Student, 0, len(profiles))
	for _, p := range profiles {
		students = append(students, models.NewStudent(p, counts[p.ID]))
	}
	return students, nil
}
