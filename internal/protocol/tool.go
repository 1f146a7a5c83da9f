package protocol

import "strings"

// Tool names as emitted by the agent server in tool_call / tool_result
// event content.
const (
	ToolBash               = "bash"
	ToolStrReplaceEditor   = "str_replace_editor"
	ToolSequentialThinking = "sequential_thinking"
	ToolMessageUser        = "message_user"
	ToolReturnControl      = "return_control_to_user"
	ToolPresentation       = "presentation"
	ToolWebSearch          = "web_search"
	ToolVisit              = "visit"
	ToolImageGenerate      = "generate_image_from_text"
	ToolVideoGenerate      = "generate_video_from_text"
	ToolSpeechGenerate     = "generate_speech_single_speaker"
	ToolDeploy             = "deploy"

	ToolBrowserView         = "browser_view"
	ToolBrowserNavigation   = "browser_navigation"
	ToolBrowserRestart      = "browser_restart"
	ToolBrowserWait         = "browser_wait"
	ToolBrowserScrollDown   = "browser_scroll_down"
	ToolBrowserScrollUp     = "browser_scroll_up"
	ToolBrowserClick        = "browser_click"
	ToolBrowserEnterText    = "browser_enter_text"
	ToolBrowserPressKey     = "browser_press_key"
	ToolBrowserSwitchTab    = "browser_switch_tab"
	ToolBrowserOpenNewTab   = "browser_open_new_tab"
	ToolBrowserViewElements = "browser_view_interactive_elements"
)

// IsBrowserTool reports whether name is one of the browser-interaction
// tools. Their results carry screenshot blocks rather than plain text.
func IsBrowserTool(name string) bool {
	return strings.HasPrefix(name, "browser_")
}

// IsTextOnlyTool reports whether a tool_call for name carries plain
// conversation text instead of an executable action.
func IsTextOnlyTool(name string) bool {
	return name == ToolSequentialThinking || name == ToolMessageUser
}

// ResultIgnored reports whether a tool_result for name never merges into
// the message timeline.
func ResultIgnored(name string) bool {
	switch name {
	case ToolSequentialThinking, ToolPresentation, ToolMessageUser:
		return true
	}
	return false
}
