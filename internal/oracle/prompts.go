package oracle

// Prompt templates for the four oracle call sites. Call sites fill the
// placeholders with fmt.Sprintf; the templates use %s markers in a fixed
// order documented per constant.

// ExtractionSystem is the system prompt for the contextual entity
// extraction call.
const ExtractionSystem = "You are an expert in PII/PHI/PCI detection. Always respond with valid JSON array only."

// ExtractionPrompt expects one argument: the text to analyze.
const ExtractionPrompt = `You are an expert in identifying personally identifiable information (PII), protected health information (PHI), and payment card information (PCI).

Analyze this text and extract ALL sensitive entities:

TEXT:
%s

ENTITY CATEGORIES TO DETECT:
- Person names (full names, first/last names)
- Geographic locations (addresses, cities, countries)
- Medical information (diagnoses, conditions, medications, procedures)
- Organizations (companies, hospitals, institutions)
- Job titles and professional roles
- Any other personally identifiable information

RESPOND WITH JSON ARRAY ONLY (no markdown, no explanation):
[
    {
        "value": "exact text extracted",
        "type": "category name (person_name, address, organization, medical_diagnosis, medication, job_title, physician_name, patient_name)",
        "context": "brief explanation of why this is sensitive"
    }
]

Be thorough. Extract every sensitive piece of information. Copy values exactly as they appear in the text.`

// ClassificationSystem is the system prompt for JSON classification
// calls.
const ClassificationSystem = "You are a helpful assistant. Always respond with valid JSON only, no markdown or extra text."

// ClassificationPrompt expects three arguments: entity value, entity
// type, and regulation context.
const ClassificationPrompt = `You are an expert in data privacy regulations (GDPR, HIPAA, PCI DSS).

Classify this detected entity:

Entity Value: %s
Entity Type: %s
Context from regulations: %s

Provide classification in JSON format:
{
    "entity_type_refined": "specific type (e.g., person_name, patient_name, cardholder_name, email, etc.)",
    "sensitivity_level": "low|medium|high|critical",
    "applicable_regulations": ["GDPR", "HIPAA", "PCI DSS"],
    "justification": "Brief explanation citing specific articles"
}

Classification guidelines:
- CRITICAL: CVV, PAN (credit card), SSN, medical record numbers
- HIGH: Names, addresses, national IDs, email, phone
- MEDIUM: Dates, organizations, job titles
- LOW: General location (city/country level)

Respond with JSON only.`

// JustificationSystem is the system prompt for free-text justification
// generation.
const JustificationSystem = "You are a data privacy expert. Provide concise, professional justifications."

// JustificationPrompt expects six arguments: entity value, entity type,
// sensitivity level, regulation, technique, and regulation article.
const JustificationPrompt = `Generate a justification for this anonymization decision:

Entity: %s
Type: %s
Sensitivity: %s
Regulation: %s
Technique Applied: %s
Regulation Article: %s

Generate a 2-3 sentence justification that:
1. Cites the specific regulation article
2. Explains why this entity needs protection
3. Justifies why this technique is appropriate

Respond in professional, concise language.`

// ReviewPrompt expects one argument: the anonymized text. The response
// is a JSON object with contains_pii, issues, and confidence fields.
const ReviewPrompt = `Review this anonymized text for any remaining sensitive data:

ANONYMIZED TEXT:
%s

Check for:
1. Any remaining personal names
2. Email addresses or phone numbers
3. Credit card numbers or financial data
4. Medical information that could identify patients
5. Any other PII/PHI/PCI data

Respond with JSON:
{
    "contains_pii": true/false,
    "issues": ["list of any detected sensitive data still present"],
    "confidence": 0.0-1.0
}

Be thorough but avoid false positives on properly anonymized tokens like [PATIENT] or Subject-001.`
