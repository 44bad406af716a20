package skill

// Request envelope types for the voice-skill webhook. Only the fields this
// service reads are modeled.

// Request types.
const (
	TypeLaunch       = "LaunchRequest"
	TypeIntent       = "IntentRequest"
	TypeSessionEnded = "SessionEndedRequest"
)

// Intent names.
const (
	IntentCheckPending    = "CheckPendingIntent"
	IntentApprove         = "ApproveIntent"
	IntentDeny            = "DenyIntent"
	IntentEnableVoiceMode = "EnableVoiceModeIntent"
	IntentEnableTextMode  = "EnableTextModeIntent"
	IntentDisable         = "DisableIntent"
	IntentStatus          = "StatusIntent"
	IntentHelp            = "AMAZON.HelpIntent"
	IntentCancel          = "AMAZON.CancelIntent"
	IntentStop            = "AMAZON.StopIntent"
	IntentFallback        = "AMAZON.FallbackIntent"
)

// RequestEnvelope is the incoming skill request.
type RequestEnvelope struct {
	Version string          `json:"version"`
	Session *Session        `json:"session,omitempty"`
	Context *RequestContext `json:"context,omitempty"`
	Request RequestPayload  `json:"request"`
}

// Session carries the interacting user for session-scoped requests.
type Session struct {
	User *User `json:"user,omitempty"`
}

// RequestContext carries the system context, including the session API
// credential used for device notifications.
type RequestContext struct {
	System *System `json:"System,omitempty"`
}

// System holds the per-session user identity and notification credential.
type System struct {
	User           *User  `json:"user,omitempty"`
	APIAccessToken string `json:"apiAccessToken,omitempty"`
	APIEndpoint    string `json:"apiEndpoint,omitempty"`
}

// User identifies the voice account interacting with the skill.
type User struct {
	UserID string `json:"userId"`
}

// RequestPayload is the typed request body.
type RequestPayload struct {
	Type   string  `json:"type"`
	Intent *Intent `json:"intent,omitempty"`
}

// Intent names the resolved intent of an IntentRequest.
type Intent struct {
	Name string `json:"name"`
}

// ResponseEnvelope is the outgoing skill response.
type ResponseEnvelope struct {
	Version  string       `json:"version"`
	Response ResponseBody `json:"response"`
}

// ResponseBody holds speech output and session control.
type ResponseBody struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

// OutputSpeech is plain-text speech.
type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reprompt is spoken when the session stays open and the user says nothing.
type Reprompt struct {
	OutputSpeech *OutputSpeech `json:"outputSpeech,omitempty"`
}

// speak builds a response that speaks text and ends the session.
func speak(text string) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version: "1.0",
		Response: ResponseBody{
			OutputSpeech:     &OutputSpeech{Type: "PlainText", Text: text},
			ShouldEndSession: true,
		},
	}
}

// ask builds a response that speaks text, keeps the session open and
// reprompts if the user stays silent.
func ask(text, reprompt string) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version: "1.0",
		Response: ResponseBody{
			OutputSpeech:     &OutputSpeech{Type: "PlainText", Text: text},
			Reprompt:         &Reprompt{OutputSpeech: &OutputSpeech{Type: "PlainText", Text: reprompt}},
			ShouldEndSession: false,
		},
	}
}

// empty builds a bare acknowledgement response.
func empty() *ResponseEnvelope {
	return &ResponseEnvelope{Version: "1.0"}
}

// intentName returns the intent name of an IntentRequest, or "".
func intentName(env *RequestEnvelope) string {
	if env.Request.Type != TypeIntent || env.Request.Intent == nil {
		return ""
	}
	return env.Request.Intent.Name
}
