package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parts-cli/internal/extract"
	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/store"
	"github.com/sells-group/parts-cli/pkg/salesforce"
)

// --- Provider stub ---

type stubProvider struct {
	name  string
	model string
	text  string
	err   error

	mu      sync.Mutex
	prompts []extract.Request
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return s.model }

func (s *stubProvider) Complete(_ context.Context, req extract.Request) (*extract.Response, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &extract.Response{Text: s.text, Model: s.model, InputTokens: 1000, OutputTokens: 200}, nil
}

func (s *stubProvider) calls() []extract.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]extract.Request(nil), s.prompts...)
}

// --- Supplier stub ---

type stubFetcher struct {
	set model.SupplierSet
	err error
}

func (f *stubFetcher) Fetch(context.Context, model.PartRequest) (model.SupplierSet, error) {
	return f.set, f.err
}

// --- Salesforce Mock ---

type mockSalesforceClient struct {
	mock.Mock
}

func (m *mockSalesforceClient) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockSalesforceClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	args := m.Called(ctx, sObjectName, record)
	return args.String(0), args.Error(1)
}

func (m *mockSalesforceClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	args := m.Called(ctx, sObjectName, id, fields)
	return args.Error(0)
}

func (m *mockSalesforceClient) UpdateCollection(ctx context.Context, sObjectName string, records []salesforce.CollectionRecord) ([]salesforce.CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesforce.CollectionResult), args.Error(1)
}

func (m *mockSalesforceClient) DescribeSObject(ctx context.Context, name string) (*salesforce.SObjectDescription, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.SObjectDescription), args.Error(1)
}

// --- Notion Mock ---

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

// --- Store helpers ---

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// createRunFailStore fails CreateRun and delegates nothing else.
type createRunFailStore struct {
	store.Store
	err error
}

func (s *createRunFailStore) CreateRun(context.Context, model.PartRequest) (*model.Run, error) {
	return nil, s.err
}
