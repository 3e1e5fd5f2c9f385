package exam

import "github.com/pavelanni/assessor/internal/model"

// FallbackBankVersion identifies the static question set below. It is
// recorded in store metadata so exported results can tell which bank served
// fallback exams.
const FallbackBankVersion = "2"

type fallbackMC struct {
	text    string
	options [4]string
	correct model.Letter
}

type fallbackSubjective struct {
	text  string
	guide string
}

var fallbackMultipleChoice = [...]fallbackMC{
	{"What is the main purpose of a summary?", [4]string{"To restate the key ideas briefly", "To add new arguments", "To list every detail", "To criticize the author"}, model.LetterA},
	{"Which of these is an example of a primary source?", [4]string{"A textbook chapter", "An encyclopedia entry", "A diary written by an eyewitness", "A review of a documentary"}, model.LetterC},
	{"What does it mean to paraphrase a text?", [4]string{"Copy it word for word", "Restate it in your own words", "Translate it into another language", "Shorten it to a title"}, model.LetterB},
	{"Which step usually comes first in the scientific method?", [4]string{"Drawing conclusions", "Publishing results", "Running experiments", "Asking a question"}, model.LetterD},
	{"What is a hypothesis?", [4]string{"A proven fact", "A testable prediction", "A final conclusion", "A list of references"}, model.LetterB},
	{"Which of these best describes a fact?", [4]string{"A statement that can be verified", "A personal preference", "A prediction about the future", "A widely shared belief"}, model.LetterA},
	{"What is the role of a topic sentence in a paragraph?", [4]string{"To end the paragraph", "To cite a source", "To introduce the paragraph's main idea", "To provide a counterexample"}, model.LetterC},
	{"Which technique helps most with long-term retention of new material?", [4]string{"Reading it once quickly", "Highlighting every line", "Studying only the night before", "Spaced review over several days"}, model.LetterD},
	{"What is the difference between correlation and causation?", [4]string{"There is no difference", "Correlation shows a relationship, causation shows one thing produces another", "Causation is weaker than correlation", "Correlation only applies to numbers"}, model.LetterB},
	{"Which of these is a reliable way to check a claim?", [4]string{"Compare several independent sources", "Trust the first search result", "Ask whether it sounds right", "Count how often it is shared"}, model.LetterA},
}

var fallbackSubjectiveBank = [...]fallbackSubjective{
	{"Explain the main idea of the material in your own words.", "A clear restatement of the central idea, mentioning the most important supporting points without copying the source."},
	{"Describe one real-world situation where this topic applies and explain why.", "A concrete example connected to the topic, with an explanation of how the concepts apply to it."},
	{"What are the strengths and weaknesses of the main argument presented?", "At least one strength and one weakness, each supported by reasoning or evidence from the material."},
	{"Compare two key concepts from the material and explain how they differ.", "Two concepts named correctly, a description of each and at least one clear point of difference."},
	{"What question would you ask to learn more about this topic, and why?", "A relevant, specific question and a justification showing what gap in understanding it would address."},
	{"Summarize the cause-and-effect relationships described in the material.", "Identifies causes and their effects accurately and explains the link between them."},
}

// FallbackQuestions returns the first n questions of the static bank for t,
// capped at the bank size. The result is freshly allocated on every call.
func FallbackQuestions(t model.QuestionType, n int) []model.Question {
	if t == model.TypeSubjective {
		n = min(max(n, 0), len(fallbackSubjectiveBank))
		out := make([]model.Question, 0, n)
		for _, f := range fallbackSubjectiveBank[:n] {
			out = append(out, model.Question{Text: f.text, Body: model.Subjective{AnswerGuide: f.guide}})
		}
		return out
	}
	n = min(max(n, 0), len(fallbackMultipleChoice))
	out := make([]model.Question, 0, n)
	for _, f := range fallbackMultipleChoice[:n] {
		out = append(out, model.Question{Text: f.text, Body: model.MultipleChoice{Options: f.options, Correct: f.correct}})
	}
	return out
}
