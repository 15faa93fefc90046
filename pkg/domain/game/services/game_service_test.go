package game_services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
)

type fakeGameRepository struct {
	mu    sync.Mutex
	saved []*game_entities.EndedGameInfo
}

func (r *fakeGameRepository) SaveEnded(ctx context.Context, info *game_entities.EndedGameInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, info)
	return nil
}

func (r *fakeGameRepository) FindByID(ctx context.Context, id game_entities.GameID) (*game_entities.Game, error) {
	return nil, nil
}

type fakeMessageBus struct {
	mu        sync.Mutex
	published []*game_entities.EndedGameInfo
}

func (b *fakeMessageBus) PublishGameEnded(ctx context.Context, info *game_entities.EndedGameInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, info)
	return nil
}

type fakeRatingPublisher struct {
	mu       sync.Mutex
	enqueued []*game_entities.EndedGameInfo
}

func (p *fakeRatingPublisher) Enqueue(ctx context.Context, info *game_entities.EndedGameInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enqueued = append(p.enqueued, info)
	return nil
}

func newTestGameService() (*GameService, *fakeGameRepository, *fakeMessageBus, *fakeRatingPublisher) {
	repo := &fakeGameRepository{}
	bus := &fakeMessageBus{}
	ratings := &fakeRatingPublisher{}
	return NewGameService(repo, bus, ratings), repo, bus, ratings
}

func TestCreateUIDMonotonicallyIncreases(t *testing.T) {
	s, _, _, _ := newTestGameService()
	first := s.CreateUID()
	second := s.CreateUID()
	assert.Less(t, int64(first), int64(second))
}

func TestCreateGameRegistersAndAllocatesID(t *testing.T) {
	s, _, _, _ := newTestGameService()
	g := s.CreateGame(game_entities.GameKindCustom, game_entities.PlayerID(1), "faf", 4)
	require.NotNil(t, g)

	found, err := s.Get(g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, found)
}

func TestGetUnknownGameReturnsNotFoundError(t *testing.T) {
	s, _, _, _ := newTestGameService()
	_, err := s.Get(game_entities.GameID(999))
	require.Error(t, err)
}

func TestMarkDirtyMergeORsFlags(t *testing.T) {
	s, _, _, _ := newTestGameService()
	g := s.CreateGame(game_entities.GameKindCustom, game_entities.PlayerID(1), "faf", 2)

	s.MarkDirty(g.ID, DirtyFlags{OnlyToPeers: true, PingsOnly: true})
	s.MarkDirty(g.ID, DirtyFlags{OnlyToPeers: false, PingsOnly: true})

	dirty := s.DrainDirty()
	flags, ok := dirty[g.ID]
	require.True(t, ok)
	assert.True(t, flags.OnlyToPeers)
	assert.True(t, flags.PingsOnly)
}

func TestDrainDirtyClearsSet(t *testing.T) {
	s, _, _, _ := newTestGameService()
	g := s.CreateGame(game_entities.GameKindCustom, game_entities.PlayerID(1), "faf", 2)
	s.MarkDirty(g.ID, DirtyFlags{})

	first := s.DrainDirty()
	assert.Len(t, first, 1)

	second := s.DrainDirty()
	assert.Empty(t, second)
}

func TestRemoveGameDropsFromRegistryAndDirtySet(t *testing.T) {
	s, _, _, _ := newTestGameService()
	g := s.CreateGame(game_entities.GameKindCustom, game_entities.PlayerID(1), "faf", 2)
	s.MarkDirty(g.ID, DirtyFlags{})

	s.RemoveGame(g.ID)

	_, err := s.Get(g.ID)
	require.Error(t, err)
	assert.Empty(t, s.DrainDirty())
}

func TestPublishGameResultsForwardsToRepoBusAndRatings(t *testing.T) {
	s, repo, bus, ratings := newTestGameService()
	info := &game_entities.EndedGameInfo{GameID: game_entities.GameID(42), Validity: game_entities.ValidityValid}

	s.PublishGameResults(context.Background(), info)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, info, repo.saved[0])
	require.Len(t, bus.published, 1)
	assert.Equal(t, info, bus.published[0])
	require.Len(t, ratings.enqueued, 1)
	assert.Equal(t, info, ratings.enqueued[0])
}
