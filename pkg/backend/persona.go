package backend

import (
	"strings"

	"github.com/dukex/chatflow/pkg/models"
)

const (
	defaultTone           = "friendly"
	defaultAgentType      = "general"
	defaultResponseLength = "medium"
)

var toneInstructions = map[string]string{
	"friendly":     "You MUST be friendly and approachable. Use warm, conversational language. Be helpful and encouraging. Avoid being cold or robotic.",
	"professional": "You MUST be professional and formal. Maintain a strict business-like tone. Be objective, precise, and respectful. Avoid slang or overly casual language.",
	"casual":       "You MUST be casual and relaxed. Use informal language, like you're talking to a friend. Feel free to use simple terms and be laid back.",
	"empathetic":   "You MUST be empathetic and supportive. Show deep understanding and care. Validate the user's feelings explicitly before providing help.",
	"enthusiastic": "You MUST be enthusiastic and energetic! Use positive language and exclamation points where appropriate. Show genuine excitement about helping.",
	"concise":      "You MUST be concise and direct. Provide straight-to-the-point answers. Do not use unnecessary fluff, pleasantries, or long explanations. Be efficient.",
}

var roleInstructions = map[string]string{
	"general":   "Your role is a versatile AI assistant. You can help with a wide range of topics.",
	"support":   "Your role is a Customer Support Agent. Your PRIMARY goal is to resolve user issues and ensure customer satisfaction. Be patient and solution-oriented.",
	"sales":     "Your role is a Sales Representative. Your PRIMARY goal is to highlight benefits and guide users towards a purchase. Be persuasive and confident.",
	"technical": "Your role is a Technical Support Specialist. Focus on troubleshooting, providing detailed technical steps, and explaining complex concepts clearly.",
	"tutor":     "Your role is an Educational Tutor. Your goal is to explain concepts clearly, provide examples, and guide the user's learning process. Be patient and encouraging.",
}

var lengthInstructions = map[string]string{
	"short": `CRITICAL CONSTRAINT - RESPONSE LENGTH:
You MUST keep your response to MAXIMUM 1-2 sentences (20-40 words).
Do NOT write more than 2 sentences under ANY circumstances.
Be extremely brief and to the point.`,
	"medium": `RESPONSE LENGTH GUIDELINE:
Provide balanced responses (3-5 sentences, approximately 50-100 words).
Be detailed enough to be helpful but do not write an essay.`,
	"detailed": `RESPONSE LENGTH REQUIREMENT:
You MUST provide COMPREHENSIVE and DETAILED responses.
Write AT LEAST 5-8 sentences (minimum 150 words).
Explain concepts thoroughly, cover all aspects and provide examples.`,
}

const coreRules = `CORE BEHAVIOR RULES:
1. You MUST ADHERE to the specified Role, Tone, and Length instructions above.
2. Always base your answers on the provided context if available.
3. If the answer is not in the context, politely state that you don't have that information.
4. Do not make up information.
5. Respond in the same language the user writes in.`

func pick(table map[string]string, key, fallback string) string {
	if v, ok := table[key]; ok {
		return v
	}

	return table[fallback]
}

// SystemPrompt composes the agent's system prompt from a persona. A nil persona and
// unknown values use the friendly, general, medium defaults.
func SystemPrompt(persona *models.Persona) string {
	if persona == nil {
		persona = &models.Persona{}
	}

	sections := []string{
		pick(roleInstructions, persona.AgentType, defaultAgentType),
		pick(toneInstructions, persona.Tone, defaultTone),
		pick(lengthInstructions, persona.ResponseLength, defaultResponseLength),
	}

	if custom := strings.TrimSpace(persona.CustomInstructions); custom != "" {
		sections = append(sections, "ADDITIONAL INSTRUCTIONS:\n"+custom)
	}

	sections = append(sections, coreRules)

	return strings.Join(sections, "\n\n")
}

// withContext appends retrieved knowledge base chunks to a system prompt.
func withContext(system string, chunks []KnowledgeChunk) string {
	var b strings.Builder

	b.WriteString(system)

	written := false

	for _, chunk := range chunks {
		content := strings.TrimSpace(chunk.Content)
		if content == "" {
			continue
		}

		if !written {
			b.WriteString("\n\n### Context:\n")

			written = true
		}

		b.WriteString("- ")
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String()
}
