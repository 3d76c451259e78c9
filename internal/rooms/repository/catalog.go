package repository

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
)

// Catalog is the YAML layout of a room seed file:
//
//	rooms:
//	  - id: atlas
//	    name: Atlas
//	    capacity: 8
//	    equipment: {projector: true}
//	    status: active
type Catalog struct {
	Rooms []*model.Room `yaml:"rooms"`
}

// LoadCatalog decodes and validates a room seed file. Ids are slugged,
// status defaults to active and duplicate ids are rejected.
func LoadCatalog(r io.Reader) ([]*model.Room, error) {
	var catalog Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("room catalog is empty")
		}
		return nil, fmt.Errorf("failed to decode room catalog: %w", err)
	}

	validate := validator.New()
	seen := make(map[string]bool, len(catalog.Rooms))
	var problems []string

	for i, room := range catalog.Rooms {
		if room == nil {
			problems = append(problems, fmt.Sprintf("rooms[%d]: empty entry", i))
			continue
		}
		room.ID = sanitizer.SanitizeSlug(room.ID)
		room.Name = sanitizer.TrimAndNormalize(room.Name)
		room.Location = sanitizer.TrimAndNormalize(room.Location)
		if room.Status == "" {
			room.Status = model.RoomStatusActive
		}
		if err := validate.Struct(room); err != nil {
			problems = append(problems, fmt.Sprintf("rooms[%d] (%s): %v", i, room.ID, err))
			continue
		}
		if seen[room.ID] {
			problems = append(problems, fmt.Sprintf("rooms[%d]: duplicate id %s", i, room.ID))
			continue
		}
		seen[room.ID] = true
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid room catalog: %s", strings.Join(problems, "; "))
	}
	return catalog.Rooms, nil
}
