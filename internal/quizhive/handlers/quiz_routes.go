package handlers

import (
	"fmt"
	"net/http"

	"github.com/quizhive/quizhive/internal/quizhive/db"
	"github.com/quizhive/quizhive/internal/quizhive/quiz"
)

func (a *API) registerQuizRoutes(mux *http.ServeMux) {
	// authoring
	mux.HandleFunc("POST /v1/companies/{id}/quizzes", a.createQuiz)
	mux.HandleFunc("GET /v1/companies/{id}/quizzes", a.listQuizzes)
	mux.HandleFunc("GET /v1/quizzes/{id}", a.getQuiz)
	mux.HandleFunc("PATCH /v1/quizzes/{id}", a.updateQuiz)
	mux.HandleFunc("DELETE /v1/quizzes/{id}", a.deleteQuiz)
	mux.HandleFunc("POST /v1/quizzes/{id}/questions", a.addQuestion)
	mux.HandleFunc("PATCH /v1/questions/{id}", a.updateQuestion)
	mux.HandleFunc("DELETE /v1/questions/{id}", a.deleteQuestion)
	mux.HandleFunc("POST /v1/questions/{id}/answers", a.addAnswer)
	mux.HandleFunc("PATCH /v1/answers/{id}", a.updateAnswer)
	mux.HandleFunc("DELETE /v1/answers/{id}", a.deleteAnswer)

	// voting and export
	mux.HandleFunc("POST /v1/companies/{id}/quizzes/{quizID}/votes", a.submitVote)
	mux.HandleFunc("GET /v1/quizzes/{id}/votes", a.myVotes)
	mux.HandleFunc("GET /v1/quizzes/{id}/votes/export", a.exportMyVotes)
	mux.HandleFunc("GET /v1/companies/{id}/quizzes/{quizID}/votes", a.companyVotes)
	mux.HandleFunc("GET /v1/companies/{id}/quizzes/{quizID}/votes/export", a.exportCompanyVotes)
	mux.HandleFunc("GET /v1/companies/{id}/quizzes/{quizID}/members/{userID}/votes/export", a.exportMemberVotes)

	// analytics
	mux.HandleFunc("GET /v1/analytics/me/rating", a.systemRating)
	mux.HandleFunc("GET /v1/analytics/companies/{id}/rating", a.companyRating)
	mux.HandleFunc("GET /v1/analytics/me/trends", a.myTrends)
	mux.HandleFunc("GET /v1/analytics/companies/{id}/quizzes/{quizID}/trends", a.quizMemberTrends)
	mux.HandleFunc("GET /v1/analytics/me/quizzes", a.availableQuizzes)
	mux.HandleFunc("GET /v1/analytics/companies/{id}/last-attempts", a.membersLastAttempt)

	// notifications
	mux.HandleFunc("GET /v1/me/notifications", a.myNotifications)
	mux.HandleFunc("POST /v1/notifications/{id}/read", a.readNotification)
}

type questionBody struct {
	QuestionText string `json:"question_text"`
	Answers      []struct {
		AnswerText string `json:"answer_text"`
		IsCorrect  bool   `json:"is_correct"`
	} `json:"answers"`
}

func (b *questionBody) toInput() *quiz.QuestionInput {
	input := &quiz.QuestionInput{Text: b.QuestionText}
	for _, answer := range b.Answers {
		input.Answers = append(input.Answers, quiz.AnswerInput{
			Text:      answer.AnswerText,
			IsCorrect: answer.IsCorrect,
		})
	}
	return input
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Title           string         `json:"title"`
		Description     string         `json:"description"`
		FrequencyInDays int            `json:"frequency_in_days"`
		Questions       []questionBody `json:"questions"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	input := &quiz.QuizInput{
		Title:           body.Title,
		Description:     body.Description,
		FrequencyInDays: body.FrequencyInDays,
	}
	for i := range body.Questions {
		input.Questions = append(input.Questions, *body.Questions[i].toInput())
	}

	created, err := a.Quizzes.CreateQuiz(r.Context(), caller.ID, companyID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	quizzes, info, err := a.Quizzes.ListByCompany(r.Context(), companyID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: quizzes, PageInfo: info})
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	found, err := a.Quizzes.GetQuiz(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (a *API) updateQuiz(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Title           *string `json:"title"`
		Description     *string `json:"description"`
		FrequencyInDays *int    `json:"frequency_in_days"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	updated, err := a.Quizzes.UpdateQuiz(r.Context(), caller.ID, id, &db.QuizUpdate{
		Title:           body.Title,
		Description:     body.Description,
		FrequencyInDays: body.FrequencyInDays,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Quizzes.DeleteQuiz(r.Context(), caller.ID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) addQuestion(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body questionBody
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	question, err := a.Quizzes.AddQuestion(r.Context(), caller.ID, quizID, body.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		QuestionText string `json:"question_text"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Quizzes.UpdateQuestion(r.Context(), caller.ID, id, body.QuestionText); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Quizzes.DeleteQuestion(r.Context(), caller.ID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) addAnswer(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	questionID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		AnswerText string `json:"answer_text"`
		IsCorrect  bool   `json:"is_correct"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	answer, err := a.Quizzes.AddAnswer(r.Context(), caller.ID, questionID, &quiz.AnswerInput{
		Text:      body.AnswerText,
		IsCorrect: body.IsCorrect,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

func (a *API) updateAnswer(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		AnswerText string `json:"answer_text"`
		IsCorrect  bool   `json:"is_correct"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Quizzes.UpdateAnswer(r.Context(), caller.ID, id, body.AnswerText, body.IsCorrect); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) deleteAnswer(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Quizzes.DeleteAnswer(r.Context(), caller.ID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) submitVote(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "quizID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Votes map[uint]uint `json:"votes"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	result, err := a.Quizzes.SubmitVote(r.Context(), caller.ID, companyID, quizID, body.Votes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) myVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := a.Quizzes.MyVotes(r.Context(), caller.ID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) companyVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "quizID")
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := a.Quizzes.CompanyVotes(r.Context(), caller.ID, companyID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeExport(w http.ResponseWriter, export *quiz.Export) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Content)
}

func (a *API) exportMyVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var export *quiz.Export
	if r.URL.Query().Get("format") == "json" {
		export, err = a.Quizzes.ExportMyVotesJSON(r.Context(), caller.ID, quizID)
	} else {
		export, err = a.Quizzes.ExportMyVotesCSV(r.Context(), caller.ID, quizID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeExport(w, export)
}

func (a *API) exportCompanyVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "quizID")
	if err != nil {
		writeError(w, err)
		return
	}

	var export *quiz.Export
	if r.URL.Query().Get("format") == "json" {
		export, err = a.Quizzes.ExportCompanyVotesJSON(r.Context(), caller.ID, companyID, quizID)
	} else {
		export, err = a.Quizzes.ExportCompanyVotesCSV(r.Context(), caller.ID, companyID, quizID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeExport(w, export)
}

func (a *API) exportMemberVotes(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "quizID")
	if err != nil {
		writeError(w, err)
		return
	}
	memberID, err := pathUint(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	var export *quiz.Export
	if r.URL.Query().Get("format") == "json" {
		export, err = a.Quizzes.ExportMemberVotesJSON(r.Context(), caller.ID, companyID, quizID, memberID)
	} else {
		export, err = a.Quizzes.ExportMemberVotesCSV(r.Context(), caller.ID, companyID, quizID, memberID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeExport(w, export)
}

func (a *API) systemRating(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	average, err := a.Analytics.SystemAverage(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":       caller.ID,
		"average_score": average,
	})
}

func (a *API) companyRating(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	average, err := a.Analytics.CompanyAverage(r.Context(), caller.ID, companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":       caller.ID,
		"company_id":    companyID,
		"average_score": average,
	})
}

func (a *API) myTrends(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	trends, err := a.Analytics.UserQuizTrends(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (a *API) quizMemberTrends(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := pathUint(r, "quizID")
	if err != nil {
		writeError(w, err)
		return
	}
	trends, err := a.Analytics.QuizMemberTrends(r.Context(), a.Users, caller.ID, companyID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (a *API) availableQuizzes(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quizzes, info, err := a.Analytics.AvailableQuizzes(r.Context(), caller.ID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: quizzes, PageInfo: info})
}

func (a *API) membersLastAttempt(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	attempts, info, err := a.Analytics.MembersLastAttempt(r.Context(), caller.ID, companyID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: attempts, PageInfo: info})
}

func (a *API) myNotifications(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	notifications, info, err := a.Notifications.MyNotifications(r.Context(), caller.ID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: notifications, PageInfo: info})
}

func (a *API) readNotification(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Notifications.MarkRead(r.Context(), caller.ID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
