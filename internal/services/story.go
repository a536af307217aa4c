package services

import (
	"context"
	"fmt"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/models"

	"github.com/google/uuid"
)

const (
	maxStoryTitleLen = 120
	maxStorySnaps    = 100
)

// StoryService manages stories: ordered collections of a bot's snaps
// with their own expiry, independent of the members'. Deleting a story
// never deletes the underlying snaps.
type StoryService struct {
	stories   StoryStore
	snaps     SnapStore
	profiles  ProfileStore
	lifecycle *LifecycleEngine
	clock     clock.Clock
}

// NewStoryService creates a new story service
func NewStoryService(stories StoryStore, snaps SnapStore, profiles ProfileStore, lifecycle *LifecycleEngine, clk clock.Clock) *StoryService {
	return &StoryService{stories: stories, snaps: snaps, profiles: profiles, lifecycle: lifecycle, clock: clk}
}

// CreateStoryRequest describes a new story
type CreateStoryRequest struct {
	Title   *string  `json:"title,omitempty"`
	SnapIDs []string `json:"snap_ids"`
	Public  *bool    `json:"is_public,omitempty"`
}

// StoryView is a story with its owner and ordered member snaps resolved
type StoryView struct {
	models.Story
	OwnerUsername string             `json:"owner_username"`
	Snaps         []*models.SnapView `json:"snaps"`
}

func (s *StoryService) view(ctx context.Context, story *models.Story) (*StoryView, error) {
	username := "unknown"
	if owner, err := s.profiles.GetByID(ctx, story.OwnerID); err == nil {
		username = owner.Username
	}

	members, err := s.stories.MemberSnaps(ctx, story.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	snapViews := make([]*models.SnapView, 0, len(members))
	for _, snap := range members {
		// Members past their own expiry drop out of the story even
		// though the story itself is still live.
		if !s.lifecycle.SnapVisible(snap, now) {
			continue
		}
		sv := &models.SnapView{Snap: *snap, IsPublic: snap.Public()}
		if sender, err := s.profiles.GetByID(ctx, snap.SenderID); err == nil {
			sv.SenderUsername = sender.Username
		} else {
			sv.SenderUsername = "unknown"
		}
		snapViews = append(snapViews, sv)
	}

	return &StoryView{Story: *story, OwnerUsername: username, Snaps: snapViews}, nil
}

// CreateStory builds a story from snaps the caller owns
func (s *StoryService) CreateStory(ctx context.Context, owner *models.Profile, req CreateStoryRequest) (*StoryView, error) {
	if len(req.SnapIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one snap required", ErrInvalidInput)
	}
	if len(req.SnapIDs) > maxStorySnaps {
		return nil, fmt.Errorf("%w: at most %d snaps per story", ErrInvalidInput, maxStorySnaps)
	}
	if req.Title != nil && len(*req.Title) > maxStoryTitleLen {
		return nil, fmt.Errorf("%w: title must be at most %d chars", ErrInvalidInput, maxStoryTitleLen)
	}

	for _, snapID := range req.SnapIDs {
		snap, err := s.snaps.GetByID(ctx, snapID)
		if err != nil {
			return nil, fmt.Errorf("snap %s: %w", snapID, mapNotFound(err))
		}
		if snap.SenderID != owner.ID {
			return nil, fmt.Errorf("snap %s not owned by caller: %w", snapID, ErrForbidden)
		}
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}
	story := &models.Story{
		ID:        uuid.New().String(),
		OwnerID:   owner.ID,
		Title:     req.Title,
		Public:    public,
		ExpiresAt: s.lifecycle.StoryExpiry(),
		CreatedAt: s.clock.Now(),
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, err
	}
	for _, snapID := range req.SnapIDs {
		if err := s.stories.AddSnap(ctx, story.ID, snapID); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, story)
}

// AppendSnap adds one of the caller's snaps to the end of a story
func (s *StoryService) AppendSnap(ctx context.Context, owner *models.Profile, storyID, snapID string) (*StoryView, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if story.OwnerID != owner.ID {
		return nil, fmt.Errorf("story %s not owned by caller: %w", storyID, ErrForbidden)
	}
	if Expired(story.ExpiresAt, s.clock.Now()) {
		return nil, fmt.Errorf("story %s expired: %w", storyID, ErrGone)
	}

	snap, err := s.snaps.GetByID(ctx, snapID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if snap.SenderID != owner.ID {
		return nil, fmt.Errorf("snap %s not owned by caller: %w", snapID, ErrForbidden)
	}

	if err := s.stories.AddSnap(ctx, storyID, snapID); err != nil {
		return nil, err
	}
	return s.view(ctx, story)
}

// ActiveStories lists unexpired public stories, newest first
func (s *StoryService) ActiveStories(ctx context.Context) ([]*StoryView, error) {
	stories, err := s.stories.ListActivePublic(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	views := make([]*StoryView, 0, len(stories))
	for _, story := range stories {
		v, err := s.view(ctx, story)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// MyStories lists the caller's unexpired stories
func (s *StoryService) MyStories(ctx context.Context, ownerID string) ([]*StoryView, error) {
	stories, err := s.stories.ListByOwner(ctx, ownerID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	views := make([]*StoryView, 0, len(stories))
	for _, story := range stories {
		v, err := s.view(ctx, story)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// CurrentStory returns the most recently created unexpired public
// story of a profile and counts the view. There is no stored "current
// story" pointer; the query defines it, so it can never dangle.
func (s *StoryService) CurrentStory(ctx context.Context, username string) (*StoryView, error) {
	owner, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, mapNotFound(err)
	}

	story, err := s.stories.LatestActiveByOwner(ctx, owner.ID, s.clock.Now())
	if err != nil {
		return nil, mapNotFound(err)
	}

	if err := s.stories.IncrementViewCount(ctx, story.ID); err != nil {
		return nil, err
	}
	story.ViewCount++
	return s.view(ctx, story)
}

// DeleteStory removes the caller's story. Member snaps are left alone.
func (s *StoryService) DeleteStory(ctx context.Context, owner *models.Profile, storyID string) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return mapNotFound(err)
	}
	if story.OwnerID != owner.ID {
		return fmt.Errorf("story %s not owned by caller: %w", storyID, ErrForbidden)
	}
	return mapNotFound(s.stories.Delete(ctx, storyID))
}
