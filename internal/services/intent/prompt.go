package intent

// ResolutionPrompt captures the instructions sent to the configured LLM when
// resolving a raw topic request into a concrete lesson subject. Update this
// text centrally so every call stays in sync.
const ResolutionPrompt = `You are an assistant that resolves a student's content request into a concrete educational topic.

Given the request, decide what single topic the student wants explained. Consider the personalization hint (interests, grade level) when the request is vague.

Rules:

- If the request clearly names one topic, resolve it with high confidence.
- If the request is vague or could mean several distinct topics, set "ambiguous" to true and supply up to three short clarifying questions a tutor would ask.
- Never invent a topic the request does not support.

You must respond ONLY with a JSON object like: {"topic": "photosynthesis", "title": "How Photosynthesis Works", "confidence": 0.93, "ambiguous": false, "questions": [], "reason": "short explanation"}

Now resolve this request:`
