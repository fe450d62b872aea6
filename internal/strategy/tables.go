package strategy

import "github.com/veilhq/veil/internal/entity"

// Technique names. Open string tags: the anonymizer dispatches on them
// and falls back to a typed placeholder for anything unrecognized.
const (
	TechniqueMasking                = "masking"
	TechniqueTokenization           = "tokenization"
	TechniquePseudonymization       = "pseudonymization"
	TechniqueGeneralization         = "generalization"
	TechniqueRemoval                = "removal"
	TechniqueTruncation             = "truncation"
	TechniqueTruncationTokenization = "truncation_tokenization"
	TechniqueKeep                   = "keep"
)

var gdprStrategies = map[string]entity.Strategy{
	"person_name": {
		Technique:     TechniquePseudonymization,
		Article:       "GDPR Art. 4(5)",
		Justification: "Pseudonymization prevents attribution without additional info",
	},
	"email": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Pseudonymization as security measure while preserving domain structure",
	},
	"phone": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Preserve country code, mask personal digits",
	},
	"phone_chile": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Preserve country code, mask personal digits",
	},
	"phone_intl": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Preserve country code, mask personal digits",
	},
	"address": {
		Technique:     TechniqueGeneralization,
		Article:       "GDPR Art. 5(1)(c)",
		Justification: "Data minimization - reduce precision while maintaining regional utility",
	},
	"rut_chile": {
		Technique:     TechniqueTokenization,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "High sensitivity national ID, enable reversibility if needed",
	},
	"date_dmy": {
		Technique:     TechniqueGeneralization,
		Article:       "GDPR Art. 5(1)(c)",
		Justification: "Data minimization, year sufficient for demographics",
	},
	"date_ymd": {
		Technique:     TechniqueGeneralization,
		Article:       "GDPR Art. 5(1)(c)",
		Justification: "Data minimization, year sufficient for demographics",
	},
	"organization": {
		Technique:     TechniquePseudonymization,
		Article:       "GDPR Art. 4(5)",
		Justification: "Organization names can be indirect identifiers",
	},
}

var hipaaStrategies = map[string]entity.Strategy{
	"patient_name": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(A)",
		Justification: "Safe Harbor identifier #1 - names must be removed",
	},
	"person_name": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(A)",
		Justification: "Safe Harbor identifier #1 - names must be removed",
	},
	"physician_name": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(A)",
		Justification: "Safe Harbor identifier #1 - names must be removed",
	},
	"email": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(F)",
		Justification: "Safe Harbor identifier #6 - email addresses",
	},
	"phone": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(D)",
		Justification: "Safe Harbor identifier #4 - telephone numbers",
	},
	"phone_chile": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(D)",
		Justification: "Safe Harbor identifier #4 - telephone numbers",
	},
	"phone_intl": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(D)",
		Justification: "Safe Harbor identifier #4 - telephone numbers",
	},
	"date_dmy": {
		Technique:     TechniqueGeneralization,
		Article:       "HIPAA §164.514(b)(2)(i)(C)",
		Justification: "Safe Harbor #3 - dates except year",
	},
	"date_ymd": {
		Technique:     TechniqueGeneralization,
		Article:       "HIPAA §164.514(b)(2)(i)(C)",
		Justification: "Safe Harbor #3 - dates except year",
	},
	"address": {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)(i)(B)",
		Justification: "Safe Harbor #2 - geographic subdivisions smaller than state",
	},
	"medical_diagnosis": {
		Technique:     TechniqueKeep,
		Article:       "HIPAA §164.514(b)(2)",
		Justification: "Clinical data needed for research, not a direct identifier",
	},
	"medication": {
		Technique:     TechniqueKeep,
		Article:       "HIPAA §164.514(b)(2)",
		Justification: "Clinical data, cannot identify individual without additional info",
	},
}

var pciStrategies = map[string]entity.Strategy{
	"credit_card": {
		Technique:     TechniqueTruncation,
		Article:       "PCI DSS Req. 3.4",
		Justification: "PAN must be rendered unreadable - show only last 4 digits",
	},
	"cvv": {
		Technique:     TechniqueRemoval,
		Article:       "PCI DSS Req. 3.2",
		Justification: "CVV/CVC must NEVER be stored after authorization",
	},
	"expiry_date": {
		Technique:     TechniqueTokenization,
		Article:       "PCI DSS Req. 3.4",
		Justification: "Sensitive authentication data should be tokenized",
	},
	"person_name": {
		Technique:     TechniquePseudonymization,
		Article:       "GDPR Art. 4(5) + PCI DSS context",
		Justification: "Cardholder name - apply GDPR pseudonymization",
	},
	"email": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Apply GDPR masking for contact data",
	},
	"phone": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Apply GDPR masking for contact data",
	},
	"phone_chile": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Apply GDPR masking for contact data",
	},
	"phone_intl": {
		Technique:     TechniqueMasking,
		Article:       "GDPR Art. 32(1)(a)",
		Justification: "Apply GDPR masking for contact data",
	},
	"address": {
		Technique:     TechniqueGeneralization,
		Article:       "GDPR Art. 5(1)(c)",
		Justification: "Billing address - apply GDPR generalization",
	},
}

// defaultStrategies are the per-regulation fallbacks for entity types
// the tables don't name. Every regulation in the enum has one, which is
// what makes Resolve total.
var defaultStrategies = map[entity.Regulation]entity.Strategy{
	entity.GDPR: {
		Technique:     TechniquePseudonymization,
		Article:       "GDPR Art. 4(5)",
		Justification: "Default pseudonymization for unspecified entity types",
	},
	entity.HIPAA: {
		Technique:     TechniqueRemoval,
		Article:       "HIPAA §164.514(b)(2)",
		Justification: "Default removal for potential PHI",
	},
	entity.PCIDSS: {
		Technique:     TechniqueTokenization,
		Article:       "PCI DSS Req. 3.4",
		Justification: "Default tokenization for payment-related data",
	},
}
