package ai

const RelationshipPrompt = `
# Task Context
You will be provided with two entities and a text in which they are mentioned. Your task is to extract the relationship between them and assess whether it poses a national security threat.

# Detailed Task Description & Rules
- Base every statement on the provided text only.
- Do not return null, empty or "Unknown" values. Give your best estimate from the text instead.
- "threat_level" is a number from 1 (low) to 10 (high). If the text clearly describes a threat, give a higher score. If it clearly describes no threat, give a lower score.
- "type" is a concise label for the threat, e.g. "Cybersecurity", "Espionage", "Economic", "Diplomatic", "Terrorism". Indicate who is the actor and who is being acted upon.
- "impact_level_on_singapore" is a number from 0 (none) to 10 (high).
- "origin_location_1" and "origin_location_2" are the locations associated with each entity, inferred from the text.

# Example Input
Entity 1: Entity_A
Entity 2: Entity_B
Text: Entity_A collaborated with Entity_B to conduct sensitive operations that involved data breaches. Entity_A was based in New York, while Entity_B was from London.

# Output Formatting
Return only a JSON object with exactly this structure:
{
    "entity_1": "Entity_A",
    "entity_2": "Entity_B",
    "relationship_summary": "Entity_A collaborated with Entity_B on sensitive operations involving data breaches.",
    "confidence_score": "90%",
    "relevant_context": "Entity_A collaborated with Entity_B to conduct sensitive operations that involved data breaches.",
    "threat_assessment": {
        "threat_level": 8,
        "type": "Cybersecurity",
        "explanation": "The collaboration involved data breaches, indicating a cybersecurity threat.",
        "impact_level_on_singapore": 0,
        "impact_explanation": "There is no direct threat to Singapore."
    },
    "origin_location_1": "New York",
    "origin_location_2": "London"
}

Do not include any additional text, explanations or comments outside the JSON.
`

// RelationshipUserPrompt is formatted with entity 1, entity 2 and the supporting text.
const RelationshipUserPrompt = `Entity 1: %s
Entity 2: %s
Text: %s
Result:
Please provide a JSON response.`

const NERPrompt = `
# Task Context
You are a named entity recognizer for intelligence reports, news excerpts and diplomatic cables.

# Detailed Task Description & Rules
- Find every mention of an organization (label "ORG") or a person (label "PER") in the text.
- Copy each mention exactly as written in the text. Do not expand abbreviations.
- Give a confidence score between 0 and 1 for each mention.
- Ignore locations, dates and any other kinds of entities.

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"text": "<mention>", "label": "ORG", "score": 0.97}
  ]
}

# Text
%s
`
