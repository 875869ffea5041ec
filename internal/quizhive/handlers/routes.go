package handlers

import (
	"context"
	"net/http"

	"github.com/quizhive/quizhive/internal/quizhive/account"
	"github.com/quizhive/quizhive/internal/quizhive/analytics"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	"github.com/quizhive/quizhive/internal/quizhive/membership"
	"github.com/quizhive/quizhive/internal/quizhive/notify"
	"github.com/quizhive/quizhive/internal/quizhive/quiz"
)

// API wires every service behind the HTTP surface.
type API struct {
	Users         *account.UserService
	Companies     *account.CompanyService
	Membership    *membership.Service
	Quizzes       *quiz.Service
	Analytics     *analytics.Service
	Notifications *notify.Service
	Resolver      IdentityResolver
}

// Handler builds the route table. Registration and login are public;
// everything else requires a resolved identity.
func (a *API) Handler() http.Handler {
	protected := http.NewServeMux()

	// users
	protected.HandleFunc("GET /v1/users", a.listUsers)
	protected.HandleFunc("GET /v1/users/{id}", a.getUser)
	protected.HandleFunc("PATCH /v1/me", a.updateProfile)
	protected.HandleFunc("POST /v1/me/password", a.changePassword)
	protected.HandleFunc("DELETE /v1/users/{id}", a.deleteUser)

	// companies
	protected.HandleFunc("POST /v1/companies", a.createCompany)
	protected.HandleFunc("GET /v1/companies", a.listCompanies)
	protected.HandleFunc("GET /v1/companies/{id}", a.getCompany)
	protected.HandleFunc("PATCH /v1/companies/{id}", a.updateCompany)
	protected.HandleFunc("POST /v1/companies/{id}/status", a.toggleCompanyStatus)
	protected.HandleFunc("DELETE /v1/companies/{id}", a.deleteCompany)

	// membership
	protected.HandleFunc("POST /v1/companies/{id}/invitations", a.sendInvitation)
	protected.HandleFunc("POST /v1/companies/{id}/requests", a.sendRequest)
	protected.HandleFunc("POST /v1/invitations/{id}/accept", a.acceptInvitation)
	protected.HandleFunc("POST /v1/invitations/{id}/reject", a.rejectInvitation)
	protected.HandleFunc("DELETE /v1/invitations/{id}", a.cancelInvitation)
	protected.HandleFunc("POST /v1/requests/{id}/accept", a.acceptRequest)
	protected.HandleFunc("POST /v1/requests/{id}/reject", a.rejectRequest)
	protected.HandleFunc("DELETE /v1/requests/{id}", a.cancelRequest)
	protected.HandleFunc("GET /v1/me/invitations", a.myInvitations)
	protected.HandleFunc("GET /v1/me/requests", a.myRequests)
	protected.HandleFunc("GET /v1/companies/{id}/invitations", a.companyInvitations)
	protected.HandleFunc("GET /v1/companies/{id}/requests", a.companyRequests)
	protected.HandleFunc("GET /v1/companies/{id}/members", a.companyMembers)
	protected.HandleFunc("GET /v1/companies/{id}/admins", a.companyAdmins)
	protected.HandleFunc("GET /v1/companies/{id}/candidates", a.companyCandidates)
	protected.HandleFunc("DELETE /v1/companies/{id}/members/{userID}", a.removeMember)
	protected.HandleFunc("POST /v1/companies/{id}/leave", a.leaveCompany)
	protected.HandleFunc("POST /v1/companies/{id}/admins/{userID}", a.promoteToAdmin)
	protected.HandleFunc("DELETE /v1/companies/{id}/admins/{userID}", a.demoteToMember)

	a.registerQuizRoutes(protected)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/users", a.register)
	mux.HandleFunc("POST /v1/login", a.login)
	mux.Handle("/", AuthMiddleware(protected, a.Resolver))
	return mux
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		PhoneNumber string `json:"phone_number"`
		Age         int    `json:"age"`
		City        string `json:"city"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := a.Users.Register(r.Context(), &account.RegisterInput{
		Email:       body.Email,
		Username:    body.Username,
		Password:    body.Password,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		PhoneNumber: body.PhoneNumber,
		Age:         body.Age,
		City:        body.City,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	token, err := a.Users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, info, err := a.Users.ListUsers(r.Context(), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: users, PageInfo: info})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := a.Users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Username    *string `json:"username"`
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		PhoneNumber *string `json:"phone_number"`
		Age         *int    `json:"age"`
		City        *string `json:"city"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := a.Users.UpdateProfile(r.Context(), caller.ID, &db.UserUpdate{
		Username:    body.Username,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		PhoneNumber: body.PhoneNumber,
		Age:         body.Age,
		City:        body.City,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := a.Users.ChangePassword(r.Context(), caller.ID, body.OldPassword, body.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
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
	if err := a.Users.DeleteUser(r.Context(), caller.ID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	company, err := a.Companies.CreateCompany(r.Context(), caller.ID, &account.CompanyInput{
		Name:  body.Name,
		Email: body.Email,
		Phone: body.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, info, err := a.Companies.ListCompanies(r.Context(), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: companies, PageInfo: info})
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	company, err := a.Companies.GetCompany(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request) {
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
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Phone *string `json:"phone"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	company, err := a.Companies.UpdateCompany(r.Context(), caller.ID, id, &db.CompanyUpdate{
		Name:  body.Name,
		Email: body.Email,
		Phone: body.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) toggleCompanyStatus(w http.ResponseWriter, r *http.Request) {
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
	company, err := a.Companies.ToggleStatus(r.Context(), caller.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) deleteCompany(w http.ResponseWriter, r *http.Request) {
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
	if err := a.Companies.DeleteCompany(r.Context(), caller.ID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) sendInvitation(w http.ResponseWriter, r *http.Request) {
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
		UserID uint `json:"user_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	employee, err := a.Membership.SendInvitation(r.Context(), caller.ID, companyID, body.UserID)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (a *API) sendRequest(w http.ResponseWriter, r *http.Request) {
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

	employee, err := a.Membership.SendRequest(r.Context(), caller.ID, companyID)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

// runEmployeeAction factors the shared shape of the accept/reject/cancel
// endpoints.
func (a *API) runEmployeeAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, callerID, employeeID uint) error) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	employeeID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := action(r.Context(), caller.ID, employeeID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// runRoleChange factors the promote/demote endpoints.
func (a *API) runRoleChange(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, callerID, companyID, userID uint) error) {
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
	userID, err := pathUint(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := action(r.Context(), caller.ID, companyID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	a.runEmployeeAction(w, r, a.Membership.AcceptInvitation)
}

func (a *API) rejectInvitation(w http.ResponseWriter, r *http.Request) {
	a.runEmployeeAction(w, r, a.Membership.RejectInvitation)
}

func (a *API) cancelInvitation(w http.ResponseWriter, r *http.Request) {
	a.runEmployeeAction(w, r, a.Membership.CancelInvitation)
}

func (a *API) acceptRequest(w http.ResponseWriter, r *http.Request) {
	a.runEmployeeAction(w, r, a.Membership.AcceptRequest)
}

func (a *API) rejectRequest(w http.ResponseWriter, r *http.Request) {
	a.runEmployeeAction(w, r, a.Membership.RejectRequest)
}

func (a *API) cancelRequest(w http.ResponseWriter, r *http.Request) {
	a.runEmployeeAction(w, r, a.Membership.CancelRequest)
}

func (a *API) myInvitations(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	employees, info, err := a.Membership.UserInvitations(r.Context(), caller.ID, statusFrom(r), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) myRequests(w http.ResponseWriter, r *http.Request) {
	caller, err := userFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	employees, info, err := a.Membership.UserRequests(r.Context(), caller.ID, statusFrom(r), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) companyInvitations(w http.ResponseWriter, r *http.Request) {
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
	employees, info, err := a.Membership.CompanyInvitations(r.Context(), caller.ID, companyID, statusFrom(r), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) companyRequests(w http.ResponseWriter, r *http.Request) {
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
	employees, info, err := a.Membership.CompanyRequests(r.Context(), caller.ID, companyID, statusFrom(r), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) companyMembers(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	employees, info, err := a.Membership.CompanyMembers(r.Context(), companyID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) companyAdmins(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	employees, info, err := a.Membership.CompanyAdmins(r.Context(), companyID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) companyCandidates(w http.ResponseWriter, r *http.Request) {
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
	employees, info, err := a.Membership.CompanyCandidates(r.Context(), caller.ID, companyID, pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: employees, PageInfo: info})
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request) {
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
	userID, err := pathUint(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Membership.RemoveMember(r.Context(), caller.ID, companyID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) leaveCompany(w http.ResponseWriter, r *http.Request) {
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
	if err := a.Membership.LeaveCompany(r.Context(), caller.ID, companyID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) promoteToAdmin(w http.ResponseWriter, r *http.Request) {
	a.runRoleChange(w, r, a.Membership.PromoteToAdmin)
}

func (a *API) demoteToMember(w http.ResponseWriter, r *http.Request) {
	a.runRoleChange(w, r, a.Membership.DemoteToMember)
}
