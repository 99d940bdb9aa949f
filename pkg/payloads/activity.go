package payloads

// UserActivityList is the input of user_activity_list.
type UserActivityList struct {
	ID     string `json:"id"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (UserActivityList) Action() string { return "user_activity_list" }

// PackageActivityList is the input of package_activity_list.
type PackageActivityList struct {
	ID                    string `json:"id"`
	Offset                int    `json:"offset,omitempty"`
	Limit                 int    `json:"limit,omitempty"`
	IncludeHiddenActivity *bool  `json:"include_hidden_activity,omitempty"`
}

func (PackageActivityList) Action() string { return "package_activity_list" }

// OrganizationActivityList is the input of organization_activity_list.
type OrganizationActivityList PackageActivityList

func (OrganizationActivityList) Action() string { return "organization_activity_list" }

// GroupActivityList is the input of group_activity_list.
type GroupActivityList PackageActivityList

func (GroupActivityList) Action() string { return "group_activity_list" }

// DashboardActivityList is the input of dashboard_activity_list.
type DashboardActivityList struct {
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

func (DashboardActivityList) Action() string { return "dashboard_activity_list" }

// ActivityShow is the input of activity_show.
type ActivityShow struct {
	ID          string `json:"id"`
	IncludeData *bool  `json:"include_data,omitempty"`
}

func (ActivityShow) Action() string { return "activity_show" }
