// ABOUTME: Wire message definitions for the live voice service
// ABOUTME: JSON shapes for setup, realtime audio input and server content
package live

// clientMessage is the envelope for every outbound frame. Exactly one field
// is set per frame.
type clientMessage struct {
	Setup         *setupPayload         `json:"setup,omitempty"`
	RealtimeInput *realtimeInputPayload `json:"realtimeInput,omitempty"`
}

// setupPayload opens a session: model, synthesis voice and persona.
type setupPayload struct {
	Model             string            `json:"model"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// realtimeInputPayload carries captured audio toward the service.
type realtimeInputPayload struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

// mediaChunk is one base64 PCM frame tagged with its MIME descriptor.
type mediaChunk struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// serverMessage is the envelope for every inbound frame.
type serverMessage struct {
	SetupComplete *setupComplete `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

type setupComplete struct{}

// serverContent carries synthesized audio and turn signals.
type serverContent struct {
	ModelTurn    *content `json:"modelTurn,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
}

type content struct {
	Parts []part `json:"parts,omitempty"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

// blob is inline binary data: base64 payload plus MIME descriptor.
type blob struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}
