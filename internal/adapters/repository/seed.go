package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iieadb/eventboard/internal/domain/model"
)

type seedFile struct {
	Events []seedEvent `yaml:"events"`
}

type seedEvent struct {
	ID        int64      `yaml:"id"`
	Name      string     `yaml:"name"`
	StartDate model.Date `yaml:"start_date"`
	EndDate   model.Date `yaml:"end_date"`
	Creator   *seedUser  `yaml:"creator"`
	TeamEvent bool       `yaml:"team_event"`
}

type seedUser struct {
	ID       int64  `yaml:"id"`
	Username string `yaml:"username"`
}

// DecodeSeed reads a YAML document with a top-level "events" list. Every
// entry needs a unique positive id.
func DecodeSeed(r io.Reader) ([]model.Event, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]model.Event, 0, len(doc.Events))
	seen := make(map[int64]struct{}, len(doc.Events))
	for i, raw := range doc.Events {
		if raw.ID <= 0 {
			return nil, fmt.Errorf("%w: seed entry %d has no id", model.ErrInvalidEvent, i)
		}
		if _, dup := seen[raw.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate seed id %d", model.ErrInvalidEvent, raw.ID)
		}
		seen[raw.ID] = struct{}{}

		e := model.Event{
			ID:        raw.ID,
			Name:      raw.Name,
			StartDate: raw.StartDate,
			EndDate:   raw.EndDate,
			TeamEvent: raw.TeamEvent,
		}
		if raw.Creator != nil {
			e.Creator = &model.User{ID: raw.Creator.ID, Username: raw.Creator.Username}
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadSeed imports the events from the YAML file at path into s.
func LoadSeed(ctx context.Context, s Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	events, err := DecodeSeed(f)
	if err != nil {
		return 0, err
	}
	if err := s.Import(ctx, events); err != nil {
		return 0, fmt.Errorf("import seed: %w", err)
	}
	return len(events), nil
}
