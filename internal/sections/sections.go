package sections

import (
	"encoding/json"
	"fmt"
)

// Kind is one of the seven fixed IEP section categories a page can be
// classified into.
type Kind string

const (
	KindInformationAndEligibility  Kind = "IEPInformationAndEligibility"
	KindCurrentLevels              Kind = "CurrentAcademicAndFunctionalLevels"
	KindAnnualGoals                Kind = "AnnualGoalsAndObjectives"
	KindFAPEServiceOffer           Kind = "FAPEServiceOffer"
	KindEducationalSettingOffer    Kind = "EducationalSettingOffer"
	KindEmergencyInstructionalPlan Kind = "EmergencyInstructionalProgram"
	KindAssessmentPlan             Kind = "AssessmentPlan"
)

// Kinds returns every section kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindInformationAndEligibility,
		KindCurrentLevels,
		KindAnnualGoals,
		KindFAPEServiceOffer,
		KindEducationalSettingOffer,
		KindEmergencyInstructionalPlan,
		KindAssessmentPlan,
	}
}

// ParseKind validates a raw classification value against the closed set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown section kind %q", s)
}

// Record is the structured-extraction output for one section. Each variant
// carries its own shape; SectionKind tags which one it is.
type Record interface {
	SectionKind() Kind
}

// InformationAndEligibility covers student identity, meeting and eligibility
// details from the cover pages of the IEP.
type InformationAndEligibility struct {
	StudentDetails           string            `json:"student_details,omitempty"`
	MeetingInformation       map[string]string `json:"iep_meeting_information,omitempty"`
	MeetingPurpose           string            `json:"meeting_purpose,omitempty"`
	DisabilityIdentification map[string]string `json:"disability_identification,omitempty"`
	LanguageProficiency      map[string]string `json:"language_proficiency,omitempty"`
	SpecialEducationEntry    map[string]string `json:"special_education_entry_information,omitempty"`
}

func (InformationAndEligibility) SectionKind() Kind { return KindInformationAndEligibility }

// FunctionalArea describes one academic or functional area and the student's
// present level in it.
type FunctionalArea struct {
	AreaName     string   `json:"area_name,omitempty"`
	CurrentLevel string   `json:"current_level,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Concerns     []string `json:"concerns,omitempty"`
}

type CurrentLevels struct {
	FunctionalAreas []FunctionalArea `json:"functional_areas,omitempty"`
}

func (CurrentLevels) SectionKind() Kind { return KindCurrentLevels }

type ShortTermObjective struct {
	Objective          string  `json:"objective,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage,omitempty"`
}

type AnnualGoal struct {
	FocusArea           string               `json:"focus_area,omitempty"`
	BaselinePerformance string               `json:"baseline_performance,omitempty"`
	AnnualGoal          string               `json:"annual_goal,omitempty"`
	ProgressPercentage  float64              `json:"progress_percentage,omitempty"`
	ShortTermObjectives []ShortTermObjective `json:"short_term_objectives,omitempty"`
}

type AnnualGoals struct {
	GoalsAndObjectives []AnnualGoal `json:"goals_and_objectives,omitempty"`
}

func (AnnualGoals) SectionKind() Kind { return KindAnnualGoals }

type FAPEServiceOffer struct {
	ServicesConsidered          []string `json:"services_considered,omitempty"`
	LeastRestrictiveEnvironment string   `json:"least_restrictive_environment,omitempty"`
	ClassroomAccommodations     []string `json:"classroom_accommodations,omitempty"`
	Modifications               []string `json:"modifications,omitempty"`
	SupportForSchoolPersonnel   []string `json:"support_for_school_personnel,omitempty"`
}

func (FAPEServiceOffer) SectionKind() Kind { return KindFAPEServiceOffer }

type EducationalSettingOffer struct {
	PlacementDetails                 string `json:"placement_details,omitempty"`
	TimeInGeneralEducation           int    `json:"time_in_general_education,omitempty"`
	ReasonsForSpecializedInstruction string `json:"reasons_for_specialized_instruction,omitempty"`
	PromotionCriteria                string `json:"promotion_criteria,omitempty"`
	TransitionPlanning               string `json:"transition_planning,omitempty"`
}

func (EducationalSettingOffer) SectionKind() Kind { return KindEducationalSettingOffer }

type EmergencyInstructionalPlan struct {
	ServiceDeliveryMethods  []string          `json:"service_delivery_methods,omitempty"`
	GoalsDuringEmergencies  []string          `json:"iep_goals_during_emergencies,omitempty"`
	FrequencyAndDuration    map[string]string `json:"frequency_and_duration_of_services,omitempty"`
	TransitionBackToRegular string            `json:"transition_back_to_regular_services,omitempty"`
}

func (EmergencyInstructionalPlan) SectionKind() Kind { return KindEmergencyInstructionalPlan }

type AssessmentDetail struct {
	AssessmentType string `json:"assessment_type,omitempty"`
	Purpose        string `json:"purpose,omitempty"`
	Method         string `json:"method,omitempty"`
	Timeline       string `json:"timeline,omitempty"`
	Assessor       string `json:"assessor,omitempty"`
}

type AssessmentPlan struct {
	Assessments []AssessmentDetail `json:"assessments,omitempty"`
}

func (AssessmentPlan) SectionKind() Kind { return KindAssessmentPlan }

// newRecord maps a kind to an empty value of its record shape.
var newRecord = map[Kind]func() Record{
	KindInformationAndEligibility:  func() Record { return &InformationAndEligibility{} },
	KindCurrentLevels:              func() Record { return &CurrentLevels{} },
	KindAnnualGoals:                func() Record { return &AnnualGoals{} },
	KindFAPEServiceOffer:           func() Record { return &FAPEServiceOffer{} },
	KindEducationalSettingOffer:    func() Record { return &EducationalSettingOffer{} },
	KindEmergencyInstructionalPlan: func() Record { return &EmergencyInstructionalPlan{} },
	KindAssessmentPlan:             func() Record { return &AssessmentPlan{} },
}

// UnmarshalRecord decodes raw JSON into the record shape for the given kind.
func UnmarshalRecord(kind Kind, data []byte) (Record, error) {
	factory, ok := newRecord[kind]
	if !ok {
		return nil, fmt.Errorf("unknown section kind %q", kind)
	}
	rec := factory()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return rec, nil
}
