package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"cropCircle/internal/content"
	"cropCircle/internal/game"
	"cropCircle/internal/model"
)

const schemaString = `
type Event {
  id: ID!
  creator: String!
  startTime: String!
  endTime: String!
  durationSeconds: Int!
  uri: String!
  active: Boolean!
  winningMemeId: Int
  tokenRef: String
  memes(byUpvotes: Boolean = true): [Meme!]!
}

type Meme {
  id: Int!
  eventId: ID!
  name: String!
  contentRef: String!
  contentUrl: String!
  description: String!
  creator: String!
  createdAt: String!
  upvotes: Int!
  downvotes: Int!
}

type Query {
  event(id: ID!): Event
  events: [Event!]!
  meme(eventId: ID!, memeId: Int!): Meme
  memes(eventId: ID!, byUpvotes: Boolean = true): [Meme!]!
  # user defaults to the caller
  balance(eventId: ID!, user: String): Int!
  myVote(eventId: ID!, memeId: Int!): String
}

type Mutation {
  createEvent(durationSeconds: Int!, uri: String!): Event!
  submitMeme(eventId: ID!, name: String!, contentRef: String!, description: String!): Meme!
  vote(eventId: ID!, memeId: Int!, isUpvote: Boolean!): Meme!
  endEvent(eventId: ID!): Event!
  grantTickets(eventId: ID!, user: String!, amount: Int!): Int!
}

schema {
  query: Query
  mutation: Mutation
}
`

// NewSchema parses the GraphQL schema over svc.
func NewSchema(svc game.Service, gateway string) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaString, &Resolver{svc: svc, gateway: gateway})
}

// Resolver is the GraphQL root.
type Resolver struct {
	svc     game.Service
	gateway string
}

func caller(ctx context.Context) (string, error) {
	addr := WalletFrom(ctx)
	if addr == "" {
		return "", gqlError(fmt.Errorf("wallet address required: %w", game.ErrUnauthorized))
	}
	return addr, nil
}

func memeID(v int32) (uint64, error) {
	if v <= 0 {
		return 0, gqlError(fmt.Errorf("meme id %d: %w", v, game.ErrNotFound))
	}
	return uint64(v), nil
}

func clampInt32(v int64) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

func (r *Resolver) Event(ctx context.Context, args struct{ ID graphql.ID }) (*eventResolver, error) {
	event, err := r.svc.Event(ctx, string(args.ID))
	if errors.Is(err, game.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, gqlError(err)
	}
	return &eventResolver{r: r, e: event}, nil
}

func (r *Resolver) Events(ctx context.Context) ([]*eventResolver, error) {
	events, err := r.svc.Events(ctx)
	if err != nil {
		return nil, gqlError(err)
	}
	out := make([]*eventResolver, len(events))
	for i, e := range events {
		out[i] = &eventResolver{r: r, e: e}
	}
	return out, nil
}

func (r *Resolver) Meme(ctx context.Context, args struct {
	EventID graphql.ID
	MemeID  int32
}) (*memeResolver, error) {
	if args.MemeID <= 0 {
		return nil, nil
	}
	meme, err := r.svc.Meme(ctx, string(args.EventID), uint64(args.MemeID))
	if errors.Is(err, game.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, gqlError(err)
	}
	return &memeResolver{r: r, m: meme}, nil
}

func (r *Resolver) Memes(ctx context.Context, args struct {
	EventID   graphql.ID
	ByUpvotes bool
}) ([]*memeResolver, error) {
	return r.memes(ctx, string(args.EventID), args.ByUpvotes)
}

func (r *Resolver) memes(ctx context.Context, eventID string, byUpvotes bool) ([]*memeResolver, error) {
	memes, err := r.svc.Memes(ctx, eventID, byUpvotes)
	if err != nil {
		return nil, gqlError(err)
	}
	out := make([]*memeResolver, len(memes))
	for i, m := range memes {
		out[i] = &memeResolver{r: r, m: m}
	}
	return out, nil
}

func (r *Resolver) Balance(ctx context.Context, args struct {
	EventID graphql.ID
	User    *string
}) (int32, error) {
	user := WalletFrom(ctx)
	if args.User != nil {
		user = *args.User
	}
	if user == "" {
		return 0, gqlError(fmt.Errorf("user required: %w", game.ErrInvalidInput))
	}
	balance, err := r.svc.Balance(ctx, user, string(args.EventID))
	if err != nil {
		return 0, gqlError(err)
	}
	return clampInt32(balance), nil
}

func (r *Resolver) MyVote(ctx context.Context, args struct {
	EventID graphql.ID
	MemeID  int32
}) (*string, error) {
	voter, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := memeID(args.MemeID)
	if err != nil {
		return nil, err
	}
	dir, ok, err := r.svc.VoteOf(ctx, string(args.EventID), id, voter)
	if err != nil {
		return nil, gqlError(err)
	}
	if !ok {
		return nil, nil
	}
	s := string(dir)
	return &s, nil
}

func (r *Resolver) CreateEvent(ctx context.Context, args struct {
	DurationSeconds int32
	URI             string
}) (*eventResolver, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	event, err := r.svc.CreateEvent(ctx, who, int64(args.DurationSeconds), args.URI)
	if err != nil {
		return nil, gqlError(err)
	}
	return &eventResolver{r: r, e: event}, nil
}

func (r *Resolver) SubmitMeme(ctx context.Context, args struct {
	EventID     graphql.ID
	Name        string
	ContentRef  string
	Description string
}) (*memeResolver, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	meme, err := r.svc.SubmitMeme(ctx, who, string(args.EventID), game.MemeInput{
		Name:        args.Name,
		ContentRef:  args.ContentRef,
		Description: args.Description,
	})
	if err != nil {
		return nil, gqlError(err)
	}
	return &memeResolver{r: r, m: meme}, nil
}

func (r *Resolver) Vote(ctx context.Context, args struct {
	EventID  graphql.ID
	MemeID   int32
	IsUpvote bool
}) (*memeResolver, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := memeID(args.MemeID)
	if err != nil {
		return nil, err
	}
	meme, err := r.svc.Vote(ctx, who, string(args.EventID), id, args.IsUpvote)
	if err != nil {
		return nil, gqlError(err)
	}
	return &memeResolver{r: r, m: meme}, nil
}

func (r *Resolver) EndEvent(ctx context.Context, args struct{ EventID graphql.ID }) (*eventResolver, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	event, err := r.svc.EndEvent(ctx, string(args.EventID))
	if err != nil {
		return nil, gqlError(err)
	}
	return &eventResolver{r: r, e: event}, nil
}

func (r *Resolver) GrantTickets(ctx context.Context, args struct {
	EventID graphql.ID
	User    string
	Amount  int32
}) (int32, error) {
	who, err := caller(ctx)
	if err != nil {
		return 0, err
	}
	balance, err := r.svc.GrantTickets(ctx, who, string(args.EventID), args.User, int64(args.Amount))
	if err != nil {
		return 0, gqlError(err)
	}
	return clampInt32(balance), nil
}

type eventResolver struct {
	r *Resolver
	e model.Event
}

func (e *eventResolver) ID() graphql.ID         { return graphql.ID(e.e.ID) }
func (e *eventResolver) Creator() string        { return e.e.Creator }
func (e *eventResolver) StartTime() string      { return e.e.StartTime.Format(time.RFC3339) }
func (e *eventResolver) EndTime() string        { return e.e.EndTime.Format(time.RFC3339) }
func (e *eventResolver) DurationSeconds() int32 { return clampInt32(int64(e.e.Duration / time.Second)) }
func (e *eventResolver) URI() string            { return e.e.URI }
func (e *eventResolver) Active() bool           { return e.e.Active }

func (e *eventResolver) WinningMemeID() *int32 {
	if !e.e.HasWinner() {
		return nil
	}
	id := clampInt32(int64(e.e.WinningMemeID))
	return &id
}

func (e *eventResolver) TokenRef() *string {
	if e.e.TokenRef == "" {
		return nil
	}
	return &e.e.TokenRef
}

func (e *eventResolver) Memes(ctx context.Context, args struct{ ByUpvotes bool }) ([]*memeResolver, error) {
	return e.r.memes(ctx, e.e.ID, args.ByUpvotes)
}

type memeResolver struct {
	r *Resolver
	m model.Meme
}

func (m *memeResolver) ID() int32           { return clampInt32(int64(m.m.ID)) }
func (m *memeResolver) EventID() graphql.ID { return graphql.ID(m.m.EventID) }
func (m *memeResolver) Name() string        { return m.m.Name }
func (m *memeResolver) ContentRef() string  { return m.m.ContentRef }
func (m *memeResolver) ContentURL() string  { return content.GatewayURL(m.r.gateway, m.m.ContentRef) }
func (m *memeResolver) Description() string { return m.m.Description }
func (m *memeResolver) Creator() string     { return m.m.Creator }
func (m *memeResolver) CreatedAt() string   { return m.m.CreatedAt.Format(time.RFC3339) }
func (m *memeResolver) Upvotes() int32      { return clampInt32(int64(m.m.Upvotes)) }
func (m *memeResolver) Downvotes() int32    { return clampInt32(int64(m.m.Downvotes)) }
