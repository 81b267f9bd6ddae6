package dtos

import (
	"encoding/json"
	"strings"
)

// SkillList accepts either a JSON array of strings or a single
// comma-separated string, since the onboarding form submits both shapes.
// Entries are trimmed and empties dropped during unmarshalling.
type SkillList []string

func (s *SkillList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*s = splitSkills(raw)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	out := make(SkillList, 0, len(list))
	for _, entry := range list {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*s = out
	return nil
}

func splitSkills(raw string) SkillList {
	out := SkillList{}
	for _, entry := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type UpdateUserRequest struct {
	Industry   string    `json:"industry"`
	Experience *int      `json:"experience"`
	Bio        string    `json:"bio"`
	Skills     SkillList `json:"skills"`
}

type UpdateUserResponse struct {
	Success bool `json:"success"`
}

type OnboardingStatus struct {
	IsOnboarded bool `json:"is_onboarded"`
}
