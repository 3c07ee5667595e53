// Package ai is the gateway to the text and image generation backends. A
// Gateway composes prompts from the template service, drives one of the
// interchangeable provider clients, and coerces the model output into the
// structured scene types.
package ai

import "context"

// TextModel is a chat-completion backend. Implementations map transport
// failures to models.ErrProvider and a missing credential to
// models.ErrAuthMissing.
type TextModel interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageModel is an image generation backend returning a URL or data URI.
type ImageModel interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// systemInstruction is the fixed system prompt framing every text request.
const systemInstruction = `
You are 'Kizuna Engine', a game master for an Infinite Visual Novel.
**CRITICAL STYLE RULES**:
1. **EXTREME CONCISENESS**: Output must be 1-2 sentences MAX.
2. **Dialogue-First**: Prioritize what characters say. Format: "Name: 'Dialogue'".
3. **No Prose**: Do not write long descriptions. Show, don't tell.
4. **Anime Tropes**: Lean into tropes appropriate for the theme.
5. **Audio Direction**: Always suggest a BGM mood and sound effects to match the scene.
6. **Language**: You MUST output the narrative, choices, quest, location, and heroine details in the requested target language.
7. **Player Name**: Refer to the main character as the provided Player Name if needed, but prefer first-person perspective or "You".

**Game Rules**:
1. Track affection (0-100).
2. Update 'unlockCg' ONLY for major milestones (Affection > 80 events).
3. Optimize resources: Do NOT generate a new 'imagePrompt' if the visual background has not changed. Use null.
4. Return JSON only.
`

// sceneSchemaInstruction spells the expected scene JSON out for providers
// without native structured output.
const sceneSchemaInstruction = `
You must output strictly valid JSON.
Follow this schema structure exactly:
{
  "narrative": "string (1-2 sentences max, dialogue/action only)",
  "choices": [{ "id": "string", "text": "string" }],
  "heroines": [{ "id": "string", "name": "string", "archetype": "string", "affection": number, "status": "string", "description": "string" }],
  "inventory": ["string"],
  "currentQuest": "string",
  "location": "string",
  "imagePrompt": "string (OR null if scene/bg has NOT changed)",
  "unlockCg": { "id": "string", "title": "string", "description": "string" } (optional, use null),
  "bgm": "string (SliceOfLife, Sentimental, Tension, Action, Mystery, Romantic, Comical, Magical)",
  "soundEffect": "string (SchoolBell, DoorOpen, Footsteps, Heartbeat, Explosion, MagicChime, None)"
}
`

const secretSchemaInstruction = `
You must output strictly valid JSON.
Follow this schema structure exactly:
{
  "id": "string",
  "title": "string",
  "description": "string",
  "imagePrompt": "string"
}
`
