package ai

import (
	"fmt"
	"strings"
)

const evaluatorSystemPrompt = `You are an expert tutor quality evaluator for an online tutoring platform. Your role is to assess tutoring session transcripts and provide actionable feedback.

EVALUATION CRITERIA (use these to determine the quality score):

Score 5 - Excellent:
- Tutor demonstrates exceptional patience and clarity
- Actively checks for student understanding throughout
- Adjusts explanations based on student responses
- Creates engaging, interactive learning environment
- Student shows clear progress and understanding

Score 4 - Good:
- Tutor is generally clear and helpful
- Checks understanding at key points
- Responds appropriately to student questions
- Good rapport building
- Student shows understanding of most concepts

Score 3 - Adequate:
- Basic explanations provided
- Some checking for understanding
- Occasional missed opportunities for clarification
- Neutral or minimal rapport building
- Student understands some concepts but may have lingering questions

Score 2 - Below Average:
- Explanations are unclear or rushed
- Rarely checks for student understanding
- May ignore student questions or confusion
- Little rapport building or patience shown
- Student frequently seems confused

Score 1 - Poor:
- Tutor is unprepared or disengaged
- No checking for understanding
- Ignores student needs
- Creates negative learning environment
- Student shows no progress or increased confusion

RISK TAGS to consider:
` + riskTagList + `
For FIRST SESSIONS, pay extra attention to:
- Initial rapport building
- Assessment of student's current level
- Setting expectations for future sessions
- Making the student feel comfortable

IMPORTANT: You MUST respond with valid JSON only. No explanations or text outside the JSON.`

const riskTagList = `- "rushed_pacing" - Tutor moves too quickly through material
- "ignored_student_questions" - Tutor doesn't address student questions
- "poor_explanation_quality" - Explanations are unclear or confusing
- "low_student_engagement" - Student is not actively participating
- "excellent_rapport_building" - Tutor builds great connection with student
- "strong_scaffolding" - Tutor breaks down concepts effectively
- "adaptive_teaching" - Tutor adjusts to student's level
- "missed_teachable_moments" - Tutor misses opportunities to deepen understanding
- "unprepared_tutor" - Tutor seems unfamiliar with material
- "excellent_student_engagement" - Student is actively learning and participating
`

func buildUserPrompt(input SessionInput, transcript string) string {
	builder := strings.Builder{}
	builder.WriteString("Evaluate this tutoring session transcript and provide your assessment.\n\n")
	builder.WriteString("SESSION METADATA:\n")
	builder.WriteString("- Subject: ")
	builder.WriteString(input.Subject)
	builder.WriteString("\n- First Session: ")
	builder.WriteString(yesNo(input.FirstSession))
	builder.WriteString(fmt.Sprintf("\n- Duration: %d minutes", input.DurationMinutes))
	builder.WriteString("\n- Student Rating Given: ")
	if input.StudentRating != nil {
		builder.WriteString(fmt.Sprintf("%d/5", *input.StudentRating))
	} else {
		builder.WriteString("Not provided")
	}
	if feedback := strings.TrimSpace(input.StudentFeedback); feedback != "" {
		builder.WriteString(fmt.Sprintf("\n- Student Feedback: %q", feedback))
	}
	builder.WriteString("\n\nTRANSCRIPT:\n")
	builder.WriteString(transcript)
	builder.WriteString(`

Provide your evaluation in this exact JSON format:
{
  "quality_score": <number 1-5>,
  "strengths": ["<strength 1>", "<strength 2>", ...],
  "areas_for_improvement": ["<area 1>", "<area 2>", ...],
  "risk_tags": ["<tag 1>", "<tag 2>", ...]
}

Response (JSON only):`)
	return builder.String()
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
