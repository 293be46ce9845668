package records

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

// progressRow is one completed lesson.
type progressRow struct {
	ID          string    `json:"id" validate:"required"`
	UserID      string    `json:"user_id" validate:"required"`
	LessonID    string    `json:"lesson_id" validate:"required"`
	CompletedAt time.Time `json:"completed_at"`
}

func progressID(userID, lessonID string) string {
	return userID + ":" + lessonID
}

// FetchUserProgress returns the ids of the lessons userID has completed.
func FetchUserProgress(ctx context.Context, gw gateway.Gateway, userID string) ([]string, error) {
	rows, err := gw.ListRecords(ctx, gateway.TableProgress, gateway.Filter{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("fetch progress %s: %w", userID, err)
	}
	ids := make([]string, 0, len(rows))
	for _, rec := range rows {
		row, err := decode[progressRow](gateway.TableProgress, rec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, row.LessonID)
	}
	return ids, nil
}

// SetLessonComplete records or clears a completed lesson.
func SetLessonComplete(ctx context.Context, gw gateway.Gateway, userID, lessonID string, complete bool) error {
	id := progressID(userID, lessonID)
	if !complete {
		if err := gw.DeleteRecord(ctx, gateway.TableProgress, id); err != nil {
			return fmt.Errorf("clear lesson %s: %w", lessonID, err)
		}
		return nil
	}
	rec, err := toRecord(progressRow{
		ID:          id,
		UserID:      userID,
		LessonID:    lessonID,
		CompletedAt: NowFunc().UTC(),
	})
	if err != nil {
		return err
	}
	if err := gw.UpsertRecord(ctx, gateway.TableProgress, rec); err != nil {
		return fmt.Errorf("complete lesson %s: %w", lessonID, err)
	}
	return nil
}

// CountProgress returns the completed-lesson count per user.
func CountProgress(ctx context.Context, gw gateway.Gateway) (map[string]int, error) {
	rows, err := gw.ListRecords(ctx, gateway.TableProgress, nil)
	if err != nil {
		return nil, fmt.Errorf("count progress: %w", err)
	}
	counts := make(map[string]int)
	for _, rec := range rows {
		row, err := decode[progressRow](gateway.TableProgress, rec)
		if err != nil {
			return nil, err
		}
		counts[row.UserID]++
	}
	return counts, nil
}
