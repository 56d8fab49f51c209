package dispatch

// ActionType 支持的请求类型，集合固定
type ActionType int

const (
	ActionGetVersion ActionType = iota + 1
	ActionGetOrRequestIdentity
	ActionIdentityFromPermissions
	ActionForgetIdentity
	ActionAuthenticate
	ActionRequestSignature
	ActionRequestArbitrarySignature
	ActionSuggestNetwork
	ActionHasAccountFor
)

var actionNames = map[ActionType]string{
	ActionGetVersion:                "getVersion",
	ActionGetOrRequestIdentity:      "getOrRequestIdentity",
	ActionIdentityFromPermissions:   "identityFromPermissions",
	ActionForgetIdentity:            "forgetIdentity",
	ActionAuthenticate:              "authenticate",
	ActionRequestSignature:          "requestSignature",
	ActionRequestArbitrarySignature: "requestArbitrarySignature",
	ActionSuggestNetwork:            "suggestNetwork",
	ActionHasAccountFor:             "hasAccountFor",
}

var actionsByName = func() map[string]ActionType {
	m := make(map[string]ActionType, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

// ParseActionType 线上类型名只能是固定集合中的一个，大小写敏感
func ParseActionType(s string) (ActionType, bool) {
	a, ok := actionsByName[s]
	return a, ok
}

func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ActionTypes 所有支持的类型
func ActionTypes() []ActionType {
	return []ActionType{
		ActionGetVersion,
		ActionGetOrRequestIdentity,
		ActionIdentityFromPermissions,
		ActionForgetIdentity,
		ActionAuthenticate,
		ActionRequestSignature,
		ActionRequestArbitrarySignature,
		ActionSuggestNetwork,
		ActionHasAccountFor,
	}
}
