package payloads

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/morezero/ckan-portal/pkg/payload"
	"github.com/morezero/ckan-portal/pkg/portal"
)

const payloadsTestPrefix = "payloads:payloads_test"

func TestEncoding_OmitsUnsetFields(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"empty search", PackageSearch{}, `{}`},
		{"search", PackageSearch{Q: "water", FQList: []string{"tags:a"}, Rows: 5}, `{"q":"water","fq_list":["tags:a"],"rows":5}`},
		{"show", PackageShow{ID: "d1"}, `{"id":"d1"}`},
		{"explicit false", GroupShow{ID: "g", IncludeDatasets: Bool(false)}, `{"id":"g","include_datasets":false}`},
		{"organization show", OrganizationShow{ID: "o", IncludeUsers: Bool(true)}, `{"id":"o","include_users":true}`},
		{"embedded list options", GroupList{ListOptions: ListOptions{Limit: 10, AllFields: Bool(true)}, Groups: []string{"a"}}, `{"limit":10,"all_fields":true,"groups":["a"]}`},
		{"license list", LicenseList{}, `{}`},
		{"datastore search text", DatastoreSearch{ResourceID: "r", Q: "jones", IncludeTotal: Bool(false)}, `{"resource_id":"r","q":"jones","include_total":false}`},
		{"datastore search by field", DatastoreSearch{ResourceID: "r", Q: map[string]any{"name": "jones"}}, `{"resource_id":"r","q":{"name":"jones"}}`},
		{"datastore upsert", DatastoreUpsert{ResourceID: "r", Method: UpsertMethodInsert, Records: []Record{{"a": 1}}}, `{"resource_id":"r","records":[{"a":1}],"method":"insert"}`},
		{"sql", DatastoreSearchSQL{SQL: "SELECT 1"}, `{"sql":"SELECT 1"}`},
		{"activity", PackageActivityList{ID: "d1", Limit: 3}, `{"id":"d1","limit":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("%s - marshal: %v", payloadsTestPrefix, err)
			}
			if string(data) != tt.want {
				t.Errorf("%s - %s = %s, want %s", payloadsTestPrefix, tt.req.Action(), data, tt.want)
			}
		})
	}
}

func TestActionNames_Unique(t *testing.T) {
	all := []Request{
		PackageList{}, CurrentPackageListWithResources{}, MemberList{}, PackageCollaboratorList{},
		PackageCollaboratorListForUser{}, GroupList{}, OrganizationList{}, GroupListAuthz{},
		OrganizationListForUser{}, LicenseList{}, TagList{}, UserList{}, PackageShow{}, ResourceShow{},
		ResourceViewShow{}, ResourceViewList{}, GroupShow{}, OrganizationShow{}, UserShow{}, PackageSearch{},
		UserActivityList{}, PackageActivityList{}, OrganizationActivityList{}, GroupActivityList{},
		DashboardActivityList{}, ActivityShow{}, DatastoreCreate{}, DatastoreUpsert{}, DatastoreInfo{},
		DatastoreDelete{}, DatastoreSearch{}, DatastoreSearchSQL{},
	}

	seen := map[string]bool{}
	for _, r := range all {
		name := r.Action()
		if name == "" {
			t.Errorf("%s - %T has no action name", payloadsTestPrefix, r)
		}
		if seen[name] {
			t.Errorf("%s - duplicate action name %q", payloadsTestPrefix, name)
		}
		seen[name] = true
	}
}

func TestFormFromStruct_PackageSearch(t *testing.T) {
	form, err := payload.FormFromStruct(PackageSearch{Q: "water", FQList: []string{"tags:a", "tags:b"}, Rows: 5})
	if err != nil {
		t.Fatalf("%s - FormFromStruct: %v", payloadsTestPrefix, err)
	}
	if q, ok := form.Get("q"); !ok || q != "water" {
		t.Errorf("%s - q = %q", payloadsTestPrefix, q)
	}
	if rows, ok := form.Get("rows"); !ok || rows != "5" {
		t.Errorf("%s - rows = %q", payloadsTestPrefix, rows)
	}
	n := 0
	for _, p := range form.Parts() {
		if p.Name == "fq_list" {
			n++
		}
	}
	if n != 2 {
		t.Errorf("%s - fq_list parts = %d, want 2", payloadsTestPrefix, n)
	}
}

func TestRequest_WithSurface(t *testing.T) {
	var gotURL, gotBody string
	p, err := portal.New("https://ckan.example.org", portal.ClientFunc(
		func(_ context.Context, u string, params *portal.RequestParams) (portal.Response, error) {
			gotURL = u
			gotBody = string(params.Body.(payload.JSONBody))
			return portal.JSONResponse(`{"success": true, "result": []}`), nil
		}))
	if err != nil {
		t.Fatalf("%s - portal.New: %v", payloadsTestPrefix, err)
	}

	req := DatastoreSearch{ResourceID: "r1", Limit: 2}
	if _, err := p.Actions().Call(context.Background(), req.Action(), payload.JSON(req)); err != nil {
		t.Fatalf("%s - Call: %v", payloadsTestPrefix, err)
	}
	if gotURL != "https://ckan.example.org/api/3/action/datastore_search" {
		t.Errorf("%s - url = %q", payloadsTestPrefix, gotURL)
	}
	if gotBody != `{"resource_id":"r1","limit":2}` {
		t.Errorf("%s - body = %q", payloadsTestPrefix, gotBody)
	}
}
