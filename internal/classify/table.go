package classify

import "github.com/veilhq/veil/internal/entity"

// quickClass is one row of the static classification table.
type quickClass struct {
	Sensitivity entity.SensitivityLevel
	Regulations []entity.Regulation
}

// quickClassification maps known entity types straight to a sensitivity
// level and regulation set, bypassing the oracle.
var quickClassification = map[string]quickClass{
	"email": {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"phone": {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},

	"credit_card":    {entity.SensitivityCritical, []entity.Regulation{entity.PCIDSS, entity.GDPR}},
	"cvv":            {entity.SensitivityCritical, []entity.Regulation{entity.PCIDSS}},
	"expiry_date":    {entity.SensitivityHigh, []entity.Regulation{entity.PCIDSS}},
	"account_number": {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},

	"rut_chile": {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"ssn_us":    {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},

	"date_dmy":       {entity.SensitivityMedium, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"date_ymd":       {entity.SensitivityMedium, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"birthdate":      {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"admission_date": {entity.SensitivityMedium, []entity.Regulation{entity.HIPAA}},
	"discharge_date": {entity.SensitivityMedium, []entity.Regulation{entity.HIPAA}},
	"death_date":     {entity.SensitivityHigh, []entity.Regulation{entity.HIPAA}},

	"person_name": {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},

	"medical_diagnosis":     {entity.SensitivityHigh, []entity.Regulation{entity.HIPAA}},
	"medication":            {entity.SensitivityHigh, []entity.Regulation{entity.HIPAA}},
	"medical_record_number": {entity.SensitivityCritical, []entity.Regulation{entity.HIPAA}},
	"health_plan_number":    {entity.SensitivityHigh, []entity.Regulation{entity.HIPAA}},

	"address":  {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"zip_code": {entity.SensitivityMedium, []entity.Regulation{entity.GDPR, entity.HIPAA}},

	"ip_address":        {entity.SensitivityMedium, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"url":               {entity.SensitivityLow, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"device_identifier": {entity.SensitivityMedium, []entity.Regulation{entity.GDPR, entity.HIPAA}},

	"biometric_identifier": {entity.SensitivityCritical, []entity.Regulation{entity.HIPAA}},
	"facial_image":         {entity.SensitivityHigh, []entity.Regulation{entity.HIPAA}},

	"certificate_number": {entity.SensitivityMedium, []entity.Regulation{entity.HIPAA}},
	"license_plate":      {entity.SensitivityMedium, []entity.Regulation{entity.HIPAA}},

	"organization": {entity.SensitivityMedium, []entity.Regulation{entity.GDPR}},
	"job_title":    {entity.SensitivityLow, []entity.Regulation{entity.GDPR}},

	"phone_chile": {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},
	"phone_intl":  {entity.SensitivityHigh, []entity.Regulation{entity.GDPR, entity.HIPAA}},
}

// pciCoreTypes are the payment entity types that make PCI DSS primary.
// A lone expiry_date is too weak a signal.
var pciCoreTypes = map[string]bool{
	"credit_card": true,
	"cvv":         true,
}

// hipaaSpecificTypes are the clinical/identifier types characteristic of
// HIPAA; shared personal data (emails, names) is not enough.
var hipaaSpecificTypes = map[string]bool{
	"medical_diagnosis":     true,
	"medication":            true,
	"medical_record_number": true,
	"health_plan_number":    true,
	"biometric_identifier":  true,
	"facial_image":          true,
	"admission_date":        true,
	"discharge_date":        true,
	"death_date":            true,
	"patient_name":          true,
}
