// Package speech provides the synthesis backends and audio output used by
// the feedback queue: a remote Azure TTS client, a local command-line
// fallback synthesizer, an oto-based player, and a small audio cache.
package speech

// Default voice for the remote synthesizer.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "en-US-AvaNeural"

// Audio format requested from Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)
