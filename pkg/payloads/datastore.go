package payloads

// DatastoreCreate is the input of datastore_create.
type DatastoreCreate struct {
	ResourceID string   `json:"resource_id"`
	Force      *bool    `json:"force,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
	Fields     []Record `json:"fields,omitempty"`
	Records    []Record `json:"records,omitempty"`
	PrimaryKey []string `json:"primary_key,omitempty"`
	Indexes    []string `json:"indexes,omitempty"`
}

func (DatastoreCreate) Action() string { return "datastore_create" }

// Upsert methods accepted by datastore_upsert.
const (
	UpsertMethodUpsert = "upsert"
	UpsertMethodInsert = "insert"
	UpsertMethodUpdate = "update"
)

// DatastoreUpsert is the input of datastore_upsert.
type DatastoreUpsert struct {
	ResourceID string   `json:"resource_id"`
	Force      *bool    `json:"force,omitempty"`
	Records    []Record `json:"records,omitempty"`
	Method     string   `json:"method,omitempty"`
	PrimaryKey []string `json:"primary_key,omitempty"`
	Indexes    []string `json:"indexes,omitempty"`
}

func (DatastoreUpsert) Action() string { return "datastore_upsert" }

// DatastoreInfo is the input of datastore_info.
type DatastoreInfo struct {
	ID string `json:"id"`
}

func (DatastoreInfo) Action() string { return "datastore_info" }

// DatastoreDelete is the input of datastore_delete.
type DatastoreDelete struct {
	ResourceID string `json:"resource_id"`
	Force      *bool  `json:"force,omitempty"`
	Filters    Record `json:"filters,omitempty"`
}

func (DatastoreDelete) Action() string { return "datastore_delete" }

// DatastoreSearch is the input of datastore_search. Q is either a full-text
// string or a map of field name to search term.
type DatastoreSearch struct {
	ResourceID   string   `json:"resource_id"`
	Filters      Record   `json:"filters,omitempty"`
	Q            any      `json:"q,omitempty"`
	Distinct     *bool    `json:"distinct,omitempty"`
	Plain        *bool    `json:"plain,omitempty"`
	Language     string   `json:"language,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
	Fields       []string `json:"fields,omitempty"`
	Sort         string   `json:"sort,omitempty"`
	IncludeTotal *bool    `json:"include_total,omitempty"`
}

func (DatastoreSearch) Action() string { return "datastore_search" }

// DatastoreSearchSQL is the input of datastore_search_sql.
type DatastoreSearchSQL struct {
	SQL string `json:"sql"`
}

func (DatastoreSearchSQL) Action() string { return "datastore_search_sql" }
