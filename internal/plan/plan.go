package plan

// Domain selects which action vocabulary and provider a plan targets.
type Domain string

const (
	DomainWeb Domain = "web"
	DomainAPI Domain = "api"
)

// Action identifies the kind of a step. The web and api domains each
// have a fixed action set; the interpreter rejects anything else.
type Action string

const (
	// Web domain actions.
	ActionNavigate       Action = "navigate"
	ActionFindElement    Action = "find_element"
	ActionFill           Action = "fill"
	ActionClick          Action = "click"
	ActionWait           Action = "wait"
	ActionCheckURLChange Action = "check_url_change"
	ActionCheckTitle     Action = "check_title"
	ActionCheckContent   Action = "check_content"
	ActionFillForm       Action = "fill_form"
	ActionCheckSuccess   Action = "check_success"

	// API domain actions.
	ActionRequest            Action = "request"
	ActionValidateStatus     Action = "validate_status"
	ActionValidateResponse   Action = "validate_response"
	ActionValidateField      Action = "validate_field"
	ActionMeasurePerformance Action = "measure_performance"
)

// Step is one typed action inside a plan. Action decides which of the
// parameter fields are meaningful; the planner always populates the
// parameters an action needs, so a missing one is a construction bug
// rather than a runtime condition.
type Step struct {
	Action      Action `json:"action"`
	Description string `json:"description"`

	URL            string            `json:"url,omitempty"`
	Selector       string            `json:"selector,omitempty"`
	Value          string            `json:"value,omitempty"`
	Method         string            `json:"method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Data           map[string]any    `json:"data,omitempty"`
	ExpectedStatus int               `json:"expected_status,omitempty"`
	Field          string            `json:"field,omitempty"`
	TimeMS         int               `json:"time,omitempty"`
	OriginalURL    string            `json:"original_url,omitempty"`
}

// Plan is an ordered, declarative description of the actions one test
// run will perform. It is immutable once built: the engine copies what
// it needs and never writes back.
type Plan struct {
	Title                   string `json:"title"`
	Description             string `json:"description"`
	GenerateAdditionalTests bool   `json:"generate_additional_tests,omitempty"`
	Steps                   []Step `json:"steps"`
}
