package constants

var ComponentKey = struct {
	HRConfig                  string
	EmployeeRepository        string
	ReferenceRepository       string
	OrganizationRepository    string
	VerificationRepository    string
	ImportJobRepository       string
	DashboardRepository       string
	AuthenticationService     string
	HierarchyService          string
	DashboardService          string
	ImportService             string
	DirectoryService          string
	Mailer                    string
	SMSSender                 string
	SendLimiter               string
	EventPublisher            string
	ImportArchive             string
	PortalMetrics             string
	AdminAuthorizationBuilder string
	AuthorizationEnabled      string
}{
	HRConfig:                  "config.hrportal",
	EmployeeRepository:        "hrportal.repository.employee",
	ReferenceRepository:       "hrportal.repository.reference",
	OrganizationRepository:    "hrportal.repository.organization",
	VerificationRepository:    "hrportal.repository.verification",
	ImportJobRepository:       "hrportal.repository.import_job",
	DashboardRepository:       "hrportal.repository.dashboard",
	AuthenticationService:     "hrportal.service.authentication",
	HierarchyService:          "hrportal.service.hierarchy",
	DashboardService:          "hrportal.service.dashboard",
	ImportService:             "hrportal.service.import",
	DirectoryService:          "hrportal.service.directory",
	Mailer:                    "hrportal.notify.mailer",
	SMSSender:                 "hrportal.notify.sms",
	SendLimiter:               "hrportal.notify.limiter",
	EventPublisher:            "hrportal.events.publisher",
	ImportArchive:             "hrportal.archive.imports",
	PortalMetrics:             "hrportal.metrics",
	AdminAuthorizationBuilder: "hrportal.authorization.builder.admin",
	AuthorizationEnabled:      "hrportal.authorization.enabled",
}

// StatusActive is the status name that marks a current employee.
const StatusActive = "Active"
