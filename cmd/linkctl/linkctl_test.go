package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/messaging"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/memory"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/summaries"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	svc      *services.LinkService
	opened   int
	released int
	cfg      *config.Config
}

func newHarness() *harness {
	return &harness{
		svc: services.NewLinkService(memory.NewLinkStore(), summaries.NoopResolver{}, messaging.NoopPublisher{}, nil, nil, nil, zap.NewNop()),
		cfg: &config.Config{StoreBackend: config.BackendMemory, LogLevel: "error", Limits: config.DefaultLimits()},
	}
}

func (h *harness) open(ctx context.Context, verbose bool) (*services.LinkService, func(), error) {
	h.opened++
	return h.svc, func() { h.released++ }, nil
}

func (h *harness) load(verbose bool) (*config.Config, error) {
	return h.cfg, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(h.open, h.load)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLinks_CreateGetDelete(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "links", "create", "note", "A", "databaseEntry", "B", "--metadata", "cites")
	require.NoError(t, err)

	var created struct {
		ID       string `json:"id"`
		Metadata string `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "cites", created.Metadata)

	out, err = h.run(t, "links", "get", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)

	out, err = h.run(t, "links", "delete", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+created.ID+"\n", out)

	_, err = h.run(t, "links", "get", created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	assert.Equal(t, h.opened, h.released)
}

func TestLinks_CreateBidirectional(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "links", "create", "experiment", "E", "protocol", "P", "--bidirectional")
	require.NoError(t, err)

	var pair struct {
		Forward struct{ SourceID string } `json:"forward"`
		Reverse struct{ SourceID string } `json:"reverse"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pair))
	assert.Equal(t, "E", pair.Forward.SourceID)
	assert.Equal(t, "P", pair.Reverse.SourceID)
}

func TestLinks_ListAndSearch(t *testing.T) {
	h := newHarness()
	for _, target := range []string{"t1", "t2", "t3"} {
		_, err := h.run(t, "links", "create", "note", "hub", "table", target, "--metadata", "ref "+target)
		require.NoError(t, err)
	}

	out, err := h.run(t, "links", "list", "--source-type", "note", "--source-id", "hub", "--limit", "2")
	require.NoError(t, err)
	var page struct {
		Links []json.RawMessage `json:"links"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Len(t, page.Links, 2)
	assert.Equal(t, 3, page.Total)

	out, err = h.run(t, "links", "search", "ref t2")
	require.NoError(t, err)
	var found []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	assert.Len(t, found, 1)

	_, err = h.run(t, "links", "list", "--source-type", "pdf")
	assert.True(t, apperrors.IsValidation(err))
}

func TestConnections_ShowAndPurge(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "links", "create", "note", "A", "project", "P", "--bidirectional")
	require.NoError(t, err)

	out, err := h.run(t, "connections", "note", "A")
	require.NoError(t, err)
	var conns struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &conns))
	assert.Equal(t, 2, conns.Total)

	out, err = h.run(t, "connections", "note", "A", "--purge")
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleted":2}`, out)
}

func TestGraph_FromEntity(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "links", "create", "note", "A", "databaseEntry", "B")
	require.NoError(t, err)

	out, err := h.run(t, "graph", "--entity-type", "note", "--entity-id", "A", "--depth", "1")
	require.NoError(t, err)

	var graph struct {
		Nodes     []json.RawMessage `json:"nodes"`
		Edges     []json.RawMessage `json:"edges"`
		Truncated bool              `json:"truncated"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	assert.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 1)
	assert.False(t, graph.Truncated)

	_, err = h.run(t, "graph", "--depth", "0")
	assert.True(t, apperrors.IsValidation(err))
}

func TestMigrate_BackendSupport(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "backend memory has no schema\n", out)

	_, err = h.run(t, "migrate", "down")
	assert.ErrorContains(t, err, "only supported for the postgres backend")

	_, err = h.run(t, "migrate", "version")
	assert.Error(t, err)

	assert.Zero(t, h.opened)
}

func TestArgsAreValidated(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "links", "create", "note", "A")

	assert.Error(t, err)
	assert.Zero(t, h.opened)
}
