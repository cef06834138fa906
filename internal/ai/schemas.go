package ai

import (
	genai "github.com/google/generative-ai-go/genai"

	"github.com/The-Burnes-Center/aiep-app/internal/sections"
)

// pageSchema is the response schema for the per-page classification pass:
// exactly one section kind plus the page's full text.
func pageSchema() *genai.Schema {
	kinds := make([]string, 0, 7)
	for _, k := range sections.Kinds() {
		kinds = append(kinds, string(k))
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"section_type": {
				Type:        genai.TypeString,
				Enum:        kinds,
				Description: "An IEP section that can be any of the defined sections",
			},
			"full_text": {
				Type:        genai.TypeString,
				Description: "All extracted full text from the page, ordered in a logical order",
			},
		},
		Required: []string{"section_type", "full_text"},
	}
}

func stringField(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func stringList(desc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: desc,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

func objectField(desc string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Description: desc, Properties: props}
}

// recordSchema maps a section kind to the response schema of its structured
// record shape.
func recordSchema(kind sections.Kind) *genai.Schema {
	switch kind {
	case sections.KindInformationAndEligibility:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"student_details": stringField("Name and Grade of the student"),
				"iep_meeting_information": objectField("Dates related to IEP and evaluations", map[string]*genai.Schema{
					"meeting_date":       stringField("Date of the IEP meeting"),
					"annual_review_date": stringField("Date of the last annual review"),
					"evaluation_date":    stringField("Date of the last evaluation"),
				}),
				"meeting_purpose": stringField("Purpose of the IEP meeting"),
				"disability_identification": objectField("Primary and Secondary disabilities", map[string]*genai.Schema{
					"primary":   stringField("Primary disability"),
					"secondary": stringField("Secondary disability"),
				}),
				"language_proficiency": objectField("Language information including EL status", map[string]*genai.Schema{
					"primary_language":       stringField("Primary language of the student"),
					"english_learner_status": stringField("English learner status"),
				}),
				"special_education_entry_information": objectField("Details about initial entry into special education", map[string]*genai.Schema{
					"initial_entry_date": stringField("Date of initial entry"),
					"referral_source":    stringField("Source of the referral"),
				}),
			},
		}

	case sections.KindCurrentLevels:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"functional_areas": {
					Type:        genai.TypeArray,
					Description: "List of different academic and functional areas with their details",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"area_name":     stringField("Name of the functional area, e.g., Reading, Math, Communication"),
							"current_level": stringField("Description of the student's current level of performance in this area"),
							"strengths":     stringList("Student's strengths in this area"),
							"concerns":      stringList("Parent or teacher concerns related to this area"),
						},
					},
				},
			},
		}

	case sections.KindAnnualGoals:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"goals_and_objectives": {
					Type:        genai.TypeArray,
					Description: "List of annual goals and corresponding objectives",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"focus_area":           stringField("Specific area like Reading, Math, Communication, etc."),
							"baseline_performance": stringField("Current level of performance in the focus area"),
							"annual_goal":          stringField("Description of the annual goal"),
							"progress_percentage":  {Type: genai.TypeNumber, Description: "Optional percentage representation of goal progress"},
							"short_term_objectives": {
								Type:        genai.TypeArray,
								Description: "List of short-term objectives for achieving the annual goal",
								Items: &genai.Schema{
									Type: genai.TypeObject,
									Properties: map[string]*genai.Schema{
										"objective":           stringField("Short-term objective description"),
										"progress_percentage": {Type: genai.TypeNumber, Description: "Optional percentage representation of progress"},
									},
								},
							},
						},
					},
				},
			},
		}

	case sections.KindFAPEServiceOffer:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"services_considered":           stringList("Overview of service options considered"),
				"least_restrictive_environment": stringField("Consideration of the least restrictive environment"),
				"classroom_accommodations":      stringList("Supports provided in the general education setting"),
				"modifications":                 stringList("Modifications to curriculum or instruction"),
				"support_for_school_personnel":  stringList("Training or consultation for school staff"),
			},
		}

	case sections.KindEducationalSettingOffer:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"placement_details":                   stringField("Type of classroom setting"),
				"time_in_general_education":           {Type: genai.TypeInteger, Description: "Percentage of time in general education"},
				"reasons_for_specialized_instruction": stringField("Rationale for specialized instruction"),
				"promotion_criteria":                  stringField("Criteria for grade advancement"),
				"transition_planning":                 stringField("Plans for educational transitions"),
			},
		}

	case sections.KindEmergencyInstructionalPlan:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"service_delivery_methods":     stringList("How services will be delivered during emergencies"),
				"iep_goals_during_emergencies": stringList("IEP goals to be focused on during emergencies"),
				"frequency_and_duration_of_services": objectField("Frequency and duration of services during emergencies", map[string]*genai.Schema{
					"frequency": stringField("How often services occur"),
					"duration":  stringField("How long services last"),
				}),
				"transition_back_to_regular_services": stringField("Plan for transitioning back to regular services"),
			},
		}

	case sections.KindAssessmentPlan:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"assessments": {
					Type:        genai.TypeArray,
					Description: "List of all assessments planned for the student",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"assessment_type": stringField("Type of assessment, e.g., Cognitive, Behavioral, Academic"),
							"purpose":         stringField("Purpose of the assessment"),
							"method":          stringField("Method of assessment, e.g., Standardized Test, Observation"),
							"timeline":        stringField("Timeline for when the assessment will be conducted"),
							"assessor":        stringField("Person or role responsible for conducting the assessment"),
						},
					},
				},
			},
		}
	}
	return nil
}
