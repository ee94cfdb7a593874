package attachments

import (
	"net/url"
	"path"
	"strings"
)

// ChatVariableKindFile is the kind shared by every attachment-derived entry.
const ChatVariableKindFile = "file"

const (
	// promptVariableIDPrefix namespaces prompt-file variable identifiers.
	// The encoded form is a compatibility surface: consumers parse it to
	// recover the root/non-root and prompt/non-prompt status of an entry.
	promptVariableIDPrefix = "prompt.file"

	promptFileModelDescription = "Prompt instructions file"
)

// ChatVariable is the externally consumed record describing one reference for
// presentation and identification purposes.
type ChatVariable struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Value            string `json:"value"`
	Kind             string `json:"kind"`
	ModelDescription string `json:"modelDescription,omitempty"`
}

// PromptVariableID builds the stable identifier for a prompt-file variable.
// Root and non-root forms of the same URI always differ: callers rely on the
// distinction between "the file the user attached" and "a file that attachment
// pulled in".
func PromptVariableID(uri *url.URL, isRoot bool) string {
	id := promptVariableIDPrefix
	if isRoot {
		id += ".root"
	}
	return id + "__" + uri.String()
}

// ToChatVariable maps a reference node and its root flag to a variable entry.
// Pure: no side effects, no I/O.
func ToChatVariable(ref *Reference, isRoot bool) ChatVariable {
	uri := ref.URI()
	base := path.Base(uri.Path)

	if ref.IsPromptFile() {
		return ChatVariable{
			ID:               PromptVariableID(uri, isRoot),
			Name:             "prompt:" + base,
			Value:            uri.String(),
			Kind:             ChatVariableKindFile,
			ModelDescription: promptFileModelDescription,
		}
	}
	return ChatVariable{
		ID:    uri.String(),
		Name:  "file:" + base,
		Value: uri.String(),
		Kind:  ChatVariableKindFile,
	}
}

// IsPromptFileVariable reports whether entry is a file-kind variable derived
// from a prompt file.
func IsPromptFileVariable(entry ChatVariable) bool {
	return entry.Kind == ChatVariableKindFile && strings.HasPrefix(entry.Name, "prompt:")
}
