// Package tts talks to the ElevenLabs speech API: the voice catalog,
// text-to-speech conversion, and subscription usage for health reporting.
//
// ResolveVoice matches a configured voice name against the catalog: an exact
// case-insensitive name or exact voice id wins, otherwise the first voice
// whose name contains the query (case-insensitive). No match is reported as
// ok=false, never as an error.
package tts
