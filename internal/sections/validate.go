package sections

import (
	"net/url"
	"strings"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/model"
)

const (
	minYear = 1900
	maxYear = 2100
)

// validateSection 按声明类型校验单个段落载荷，错误信息带段落序号。
func validateSection(i int, in model.SectionInput) error {
	switch in.Type {
	case model.SectionEducation:
		if in.Education == nil {
			return invalidf(i, "education payload missing")
		}
		return validateEducation(i, in.Education)
	case model.SectionExperience:
		if in.Experience == nil {
			return invalidf(i, "experience payload missing")
		}
		return validateExperience(i, in.Experience)
	case model.SectionSkill:
		if in.SkillGroup == nil {
			return invalidf(i, "skill payload missing")
		}
		return validateSkillGroup(i, in.SkillGroup)
	case model.SectionProject:
		if in.Project == nil {
			return invalidf(i, "project payload missing")
		}
		return validateProject(i, in.Project)
	case model.SectionCertification:
		if in.Certification == nil {
			return invalidf(i, "certification payload missing")
		}
		return validateCertification(i, in.Certification)
	default:
		return invalidf(i, "unknown section type %q", in.Type)
	}
}

func validateEducation(i int, edu *model.EducationInput) error {
	if strings.TrimSpace(edu.School) == "" {
		return invalidf(i, "education school is required")
	}
	if strings.TrimSpace(edu.Degree) == "" {
		return invalidf(i, "education degree is required")
	}
	return validateDateRange(i, edu.StartMonth, edu.StartYear, edu.EndMonth, edu.EndYear)
}

func validateExperience(i int, exp *model.ExperienceInput) error {
	if strings.TrimSpace(exp.Company) == "" {
		return invalidf(i, "experience company is required")
	}
	if strings.TrimSpace(exp.Title) == "" {
		return invalidf(i, "experience title is required")
	}
	return validateDateRange(i, exp.StartMonth, exp.StartYear, exp.EndMonth, exp.EndYear)
}

func validateSkillGroup(i int, group *model.SkillGroupInput) error {
	if len(group.Skills) == 0 {
		return invalidf(i, "skill section needs at least one skill")
	}
	for _, entry := range group.Skills {
		if strings.TrimSpace(entry.Name) == "" {
			return invalidf(i, "skill name is required")
		}
	}
	return nil
}

func validateProject(i int, proj *model.ProjectInput) error {
	if strings.TrimSpace(proj.Name) == "" {
		return invalidf(i, "project name is required")
	}
	if proj.URL != "" && !isHTTPURL(proj.URL) {
		return invalidf(i, "project url %q is not a valid http(s) url", proj.URL)
	}
	for _, ref := range proj.SkillsUsed {
		if strings.TrimSpace(ref.Name) == "" {
			return invalidf(i, "project skill name is required")
		}
	}
	return nil
}

func validateCertification(i int, cert *model.CertificationInput) error {
	if strings.TrimSpace(cert.Name) == "" {
		return invalidf(i, "certification name is required")
	}
	if strings.TrimSpace(cert.Issuer) == "" {
		return invalidf(i, "certification issuer is required")
	}
	if cert.IssueYear != nil && (*cert.IssueYear < minYear || *cert.IssueYear > maxYear) {
		return invalidf(i, "certification year %d out of range", *cert.IssueYear)
	}
	if cert.URL != "" && !isHTTPURL(cert.URL) {
		return invalidf(i, "certification url %q is not a valid http(s) url", cert.URL)
	}
	return nil
}

func validateDateRange(i, startMonth, startYear int, endMonth, endYear *int) error {
	if startMonth < 1 || startMonth > 12 {
		return invalidf(i, "start month %d out of range", startMonth)
	}
	if startYear < minYear || startYear > maxYear {
		return invalidf(i, "start year %d out of range", startYear)
	}
	if (endMonth == nil) != (endYear == nil) {
		return invalidf(i, "end month and end year must be set together")
	}
	if endMonth != nil {
		if *endMonth < 1 || *endMonth > 12 {
			return invalidf(i, "end month %d out of range", *endMonth)
		}
		if *endYear < minYear || *endYear > maxYear {
			return invalidf(i, "end year %d out of range", *endYear)
		}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func invalidf(i int, format string, args ...any) error {
	return apperr.New(apperr.InvalidArgument, "section %d: "+format, append([]any{i}, args...)...)
}
