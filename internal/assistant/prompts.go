package assistant

import "fmt"

const expandPrompt = `You rewrite user questions into search queries for a semantic knowledge base.
Rewrite the question below as one short, specific search query. Keep the key
terms, add obvious synonyms, and drop filler words. Use the language of the question.
Reply with the query only, on a single line, without quotes or explanations.

Question: %s`

const answerPrompt = `You are a knowledge base assistant. Answer the question using ONLY the context below.
Rules:
- Rely strictly on the context. Do not use outside knowledge.
- Support the answer with short quotes from the context.
- If the context does not contain the answer, say plainly that there is no information about it in the knowledge base.
- Answer in the language of the question.

Context:
%s

Question: %s`

const summaryPrompt = `Summarize the article below in 3-5 sentences and suggest 3-5 topic tags.
Write in the language of the article. Use exactly this format:
Summary: <summary>
Tags: #tag1 #tag2 #tag3

Title: %s

Article:
%s`

const quizPrompt = `Write a quiz of %d multiple-choice questions that check understanding of the article below.
Each question has 3-4 answer options and exactly one correct option. Write in the language of the article.
Respond with a bare JSON array and nothing else: no commentary, no markdown fences.
Format:
[{"question": "...", "options": ["...", "...", "..."], "correct_index": 0}]
correct_index is the zero-based position of the correct option.

Article:
%s`

func buildExpandPrompt(question string) string {
	return fmt.Sprintf(expandPrompt, question)
}

func buildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(answerPrompt, context, question)
}

func buildSummaryPrompt(title, text string) string {
	return fmt.Sprintf(summaryPrompt, title, text)
}

func buildQuizPrompt(n int, text string) string {
	return fmt.Sprintf(quizPrompt, n, text)
}
