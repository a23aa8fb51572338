package service

import (
	"context"
	"fmt"
	"lab-booking/internal/domain"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

type LabService struct {
	repo LabRepository
}

func NewLabService(repo LabRepository) *LabService {
	return &LabService{
		repo: repo,
	}
}

// ListLabs returns every lab with its computer counts, ordered by id.
func (s *LabService) ListLabs(ctx context.Context) ([]domain.LabSummary, error) {
	labs, err := s.repo.ListLabSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list labs: %w", err)
	}
	if labs == nil {
		labs = []domain.LabSummary{}
	}
	return labs, nil
}

// GetLabDetails returns the lab with its computers that are still free.
func (s *LabService) GetLabDetails(ctx context.Context, labID int64) (*domain.Lab, error) {
	lab, err := s.repo.GetLabByID(ctx, labID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lab %d: %w", labID, err)
	}
	if lab == nil {
		return nil, ErrLabNotFound
	}

	available, err := s.repo.ListComputersByLab(ctx, []int64{labID}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list computers for lab %d: %w", labID, err)
	}
	lab.Computers = available
	return lab, nil
}

// Search matches labs by name fragment. A numeric query selects the computer
// with that id; any other query selects the computers of the matched labs.
func (s *LabService) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		labs, err := s.repo.ListLabs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list labs: %w", err)
		}
		computers, err := s.repo.ListComputers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list computers: %w", err)
		}
		return newSearchResult(labs, computers), nil
	}

	labs, err := s.repo.SearchLabs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search labs for %q: %w", query, err)
	}

	var computers []*domain.Computer
	if id, convErr := strconv.ParseInt(query, 10, 64); convErr == nil {
		computer, err := s.repo.GetComputer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load computer %d: %w", id, err)
		}
		if computer != nil {
			computers = append(computers, computer)
		}
	} else if len(labs) > 0 {
		ids := make([]int64, 0, len(labs))
		for _, lab := range labs {
			ids = append(ids, lab.ID)
		}
		computers, err = s.repo.ListComputersByLab(ctx, ids, false)
		if err != nil {
			return nil, fmt.Errorf("failed to list computers for matched labs: %w", err)
		}
	}

	return newSearchResult(labs, computers), nil
}

// SeedLabs creates each lab that does not exist yet by name. Existing labs
// keep their computers untouched.
func (s *LabService) SeedLabs(ctx context.Context, seeds []domain.LabSeed) error {
	for _, seed := range seeds {
		if strings.TrimSpace(seed.Name) == "" {
			return fmt.Errorf("lab seed has an empty name")
		}
		if utf8.RuneCountInString(seed.Name) > domain.MaxLabNameLen {
			return fmt.Errorf("lab seed name exceeds %d characters", domain.MaxLabNameLen)
		}
		existing, err := s.repo.GetLabByName(ctx, seed.Name)
		if err != nil {
			return fmt.Errorf("failed to check lab %q: %w", seed.Name, err)
		}
		if existing != nil {
			continue
		}
		lab, err := s.repo.CreateLab(ctx, seed.Name, seed.Computers)
		if err != nil {
			return fmt.Errorf("failed to seed lab %q: %w", seed.Name, err)
		}
		log.Info().Int64("lab_id", lab.ID).Str("name", lab.Name).Int("computers", seed.Computers).Msg("lab seeded")
	}
	return nil
}

func newSearchResult(labs []*domain.Lab, computers []*domain.Computer) *SearchResult {
	if labs == nil {
		labs = []*domain.Lab{}
	}
	if computers == nil {
		computers = []*domain.Computer{}
	}
	return &SearchResult{Labs: labs, Computers: computers}
}
