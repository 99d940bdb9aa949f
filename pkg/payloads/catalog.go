package payloads

// PackageList is the input of package_list.
type PackageList struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func (PackageList) Action() string { return "package_list" }

// CurrentPackageListWithResources is the input of current_package_list_with_resources.
type CurrentPackageListWithResources struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func (CurrentPackageListWithResources) Action() string {
	return "current_package_list_with_resources"
}

// MemberList is the input of member_list.
type MemberList struct {
	ID         string `json:"id"`
	ObjectType string `json:"object_type,omitempty"`
	Capacity   string `json:"capacity,omitempty"`
}

func (MemberList) Action() string { return "member_list" }

// PackageCollaboratorList is the input of package_collaborator_list.
type PackageCollaboratorList struct {
	ID       string `json:"id"`
	Capacity string `json:"capacity,omitempty"`
}

func (PackageCollaboratorList) Action() string { return "package_collaborator_list" }

// PackageCollaboratorListForUser is the input of package_collaborator_list_for_user.
type PackageCollaboratorListForUser struct {
	ID       string `json:"id"`
	Capacity string `json:"capacity,omitempty"`
}

func (PackageCollaboratorListForUser) Action() string {
	return "package_collaborator_list_for_user"
}

// ListOptions are shared by group_list and organization_list.
type ListOptions struct {
	Sort                string `json:"sort,omitempty"`
	Limit               int    `json:"limit,omitempty"`
	Offset              int    `json:"offset,omitempty"`
	AllFields           *bool  `json:"all_fields,omitempty"`
	IncludeDatasetCount *bool  `json:"include_dataset_count,omitempty"`
	IncludeExtras       *bool  `json:"include_extras,omitempty"`
	IncludeTags         *bool  `json:"include_tags,omitempty"`
	IncludeGroups       *bool  `json:"include_groups,omitempty"`
	IncludeUsers        *bool  `json:"include_users,omitempty"`
}

// GroupList is the input of group_list.
type GroupList struct {
	ListOptions
	Groups []string `json:"groups,omitempty"`
}

func (GroupList) Action() string { return "group_list" }

// OrganizationList is the input of organization_list.
type OrganizationList struct {
	ListOptions
	Organizations []string `json:"organizations,omitempty"`
}

func (OrganizationList) Action() string { return "organization_list" }

// GroupListAuthz is the input of group_list_authz.
type GroupListAuthz struct {
	AvailableOnly *bool `json:"available_only,omitempty"`
	AmMember      *bool `json:"am_member,omitempty"`
}

func (GroupListAuthz) Action() string { return "group_list_authz" }

// OrganizationListForUser is the input of organization_list_for_user.
type OrganizationListForUser struct {
	ID                  string `json:"id,omitempty"`
	Permission          string `json:"permission,omitempty"`
	IncludeDatasetCount *bool  `json:"include_dataset_count,omitempty"`
}

func (OrganizationListForUser) Action() string { return "organization_list_for_user" }

// LicenseList is the input of license_list; it takes no parameters.
type LicenseList struct{}

func (LicenseList) Action() string { return "license_list" }

// TagList is the input of tag_list.
type TagList struct {
	Query        string `json:"query,omitempty"`
	VocabularyID string `json:"vocabulary_id,omitempty"`
	AllFields    *bool  `json:"all_fields,omitempty"`
}

func (TagList) Action() string { return "tag_list" }

// UserList is the input of user_list.
type UserList struct {
	Q         string `json:"q,omitempty"`
	Email     string `json:"email,omitempty"`
	OrderBy   string `json:"order_by,omitempty"`
	AllFields *bool  `json:"all_fields,omitempty"`
}

func (UserList) Action() string { return "user_list" }

// PackageShow is the input of package_show.
type PackageShow struct {
	ID string `json:"id"`
}

func (PackageShow) Action() string { return "package_show" }

// ResourceShow is the input of resource_show.
type ResourceShow struct {
	ID string `json:"id"`
}

func (ResourceShow) Action() string { return "resource_show" }

// ResourceViewShow is the input of resource_view_show.
type ResourceViewShow struct {
	ID string `json:"id"`
}

func (ResourceViewShow) Action() string { return "resource_view_show" }

// ResourceViewList is the input of resource_view_list.
type ResourceViewList struct {
	ID string `json:"id"`
}

func (ResourceViewList) Action() string { return "resource_view_list" }

// GroupShow is the input of group_show.
type GroupShow struct {
	ID              string `json:"id"`
	IncludeDatasets *bool  `json:"include_datasets,omitempty"`
	IncludeExtras   *bool  `json:"include_extras,omitempty"`
	IncludeUsers    *bool  `json:"include_users,omitempty"`
}

func (GroupShow) Action() string { return "group_show" }

// OrganizationShow is the input of organization_show.
type OrganizationShow GroupShow

func (OrganizationShow) Action() string { return "organization_show" }

// UserShow is the input of user_show.
type UserShow struct {
	ID              string `json:"id"`
	IncludeDatasets *bool  `json:"include_datasets,omitempty"`
}

func (UserShow) Action() string { return "user_show" }

// PackageSearch is the input of package_search.
type PackageSearch struct {
	Q      string   `json:"q,omitempty"`
	FQ     string   `json:"fq,omitempty"`
	FQList []string `json:"fq_list,omitempty"`
	Sort   string   `json:"sort,omitempty"`
	Rows   int      `json:"rows,omitempty"`
	Start  int      `json:"start,omitempty"`
}

func (PackageSearch) Action() string { return "package_search" }
