package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// ErrNotFound is returned when a write targets a row that does not exist.
var ErrNotFound = errors.New("row not found")

// Partition is the partition key shared by every row of the board.
const Partition = "team"

// Tables names the table behind each entity.
type Tables struct {
	Members   string
	Schedules string
	Todos     string
	Monthly   string
	Notes     string
}

// DefaultTables returns the table names used when none are configured.
func DefaultTables() Tables {
	return Tables{
		Members:   "members",
		Schedules: "schedules",
		Todos:     "todos",
		Monthly:   "monthlydashboard",
		Notes:     "sharednotes",
	}
}

// Names lists the configured table names.
func (t Tables) Names() []string {
	return []string{t.Members, t.Schedules, t.Todos, t.Monthly, t.Notes}
}

// Storage is the remote record store backed by Azure Table Storage.
type Storage struct {
	members   table
	schedules table
	todos     table
	monthly   table
	notes     table
	now       func() time.Time
}

// New creates a Storage instance from the given connection string.
func New(connStr string, tables Tables) (*Storage, error) {
	svc, err := NewServiceClient(connStr)
	if err != nil {
		return nil, err
	}
	return &Storage{
		members:   table{client: svc.NewClient(tables.Members)},
		schedules: table{client: svc.NewClient(tables.Schedules)},
		todos:     table{client: svc.NewClient(tables.Todos)},
		monthly:   table{client: svc.NewClient(tables.Monthly)},
		notes:     table{client: svc.NewClient(tables.Notes)},
		now:       time.Now,
	}, nil
}

// NewServiceClient opens the table service with the board's retry policy.
func NewServiceClient(connStr string) (*aztables.ServiceClient, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return aztables.NewServiceClientFromConnectionString(connStr, &opts)
}

// CreateTables creates every table that does not exist yet.
func CreateTables(ctx context.Context, svc *aztables.ServiceClient, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return err
			}
		}
	}
	return nil
}

// table implements select/insert/update/delete/upsert on one table.
type table struct {
	client *aztables.Client
}

func (t table) selectRows(ctx context.Context, filter string) ([][]byte, error) {
	f := partitionFilter()
	if filter != "" {
		f += " and " + filter
	}
	pager := t.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &f})
	rows := [][]byte{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Entities...)
	}
	return rows, nil
}

func (t table) get(ctx context.Context, rowKey string) ([]byte, error) {
	resp, err := t.client.GetEntity(ctx, Partition, rowKey, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return resp.Value, nil
}

func (t table) insert(ctx context.Context, ent any) ([]byte, error) {
	payload, err := marshal(ent)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.AddEntity(ctx, payload, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return payload, nil
	}
	return resp.Value, nil
}

// update merges patch into the stored row and returns the row as stored afterwards.
func (t table) update(ctx context.Context, rowKey string, patch any) ([]byte, error) {
	payload, err := marshal(patch)
	if err != nil {
		return nil, err
	}
	et := azcore.ETagAny
	_, err = t.client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t.get(ctx, rowKey)
}

func (t table) upsert(ctx context.Context, ent any) error {
	payload, err := marshal(ent)
	if err != nil {
		return err
	}
	_, err = t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// delete removes a row; deleting a missing row is not an error.
func (t table) delete(ctx context.Context, rowKey string) error {
	_, err := t.client.DeleteEntity(ctx, Partition, rowKey, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func partitionFilter() string {
	return "PartitionKey eq " + quote(Partition)
}

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func dateTimeLiteral(t time.Time) string {
	return "datetime'" + t.UTC().Format(time.RFC3339) + "'"
}
