package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrEpisodeCountOutOfRange is returned when the requested count exceeds the title's total.
var ErrEpisodeCountOutOfRange = errors.New("episode count out of range")

// Publication is the outcome of PublishEpisodes.
type Publication struct {
	PreviousAvailable int
	AvailableEpisodes int
	TotalEpisodes     int
	Changed           bool
}

// PublishEpisodes raises manga.available_episodes to count. The counter never decreases:
// a count at or below the current value leaves the row untouched and reports Changed=false.
func (s *Store) PublishEpisodes(ctx context.Context, contentID string, count int) (*Publication, error) {
	pub := &Publication{}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT available_episodes, total_episodes FROM manga WHERE id = $1 FOR UPDATE`,
			contentID,
		).Scan(&pub.PreviousAvailable, &pub.TotalEpisodes)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock manga: %w", err)
		}

		if count < 0 || count > pub.TotalEpisodes {
			return fmt.Errorf("%w: %d not in [0, %d]", ErrEpisodeCountOutOfRange, count, pub.TotalEpisodes)
		}

		pub.AvailableEpisodes = pub.PreviousAvailable
		if count <= pub.PreviousAvailable {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE manga SET available_episodes = $1 WHERE id = $2`,
			count, contentID,
		); err != nil {
			return fmt.Errorf("update available episodes: %w", err)
		}
		pub.AvailableEpisodes = count
		pub.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pub.Changed {
		s.InvalidateContent(ctx, contentID)
	}
	return pub, nil
}

// NewlyUnlocked lists the episode numbers the publication made available.
func (p Publication) NewlyUnlocked() []int {
	if !p.Changed {
		return []int{}
	}
	out := make([]int, 0, p.AvailableEpisodes-p.PreviousAvailable)
	for n := p.PreviousAvailable + 1; n <= p.AvailableEpisodes; n++ {
		out = append(out, n)
	}
	return out
}
