package catalog

import (
	"context"
	"strings"
)

// Searcher finds room types of a property by free text.
type Searcher interface {
	SearchRoomTypes(ctx context.Context, propertyID, query string, limit int) ([]RoomType, error)
}

// LocalSearch matches case-insensitive substrings of code, name and description.
// It serves search when no external index is configured.
type LocalSearch struct {
	Store Store
}

func (s LocalSearch) SearchRoomTypes(ctx context.Context, propertyID, query string, limit int) ([]RoomType, error) {
	all, err := s.Store.ListRoomTypes(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	terms := strings.Fields(strings.ToLower(query))

	out := []RoomType{}
	for _, rt := range all {
		hay := strings.ToLower(rt.Code + " " + rt.Name + " " + rt.Description)
		match := true
		for _, t := range terms {
			if !strings.Contains(hay, t) {
				match = false
				break
			}
		}
		if match {
			out = append(out, rt)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
