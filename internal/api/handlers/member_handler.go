package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ============================================
// Member Handler
// ============================================

type MemberHandler struct {
	memberService service.MemberService
	log           *logrus.Entry
}

func (h *MemberHandler) Create(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.CreateMemberRequest
	if !bind(c, &req) {
		return
	}

	member, err := h.memberService.CreateMember(c.Request.Context(), a, service.CreateMemberInput{
		Email:     req.Email,
		Username:  req.Username,
		TypeName:  req.MemberType,
		BirthDate: req.BirthDate,
		Password:  req.Password,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Member created successfully", toMemberResponse(member))
}

func (h *MemberHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	response := make([]models.MemberResponse, len(members))
	for i, m := range members {
		response[i] = toMemberResponse(m)
	}
	ok(c, response)
}

func (h *MemberHandler) Me(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	member, err := h.memberService.Me(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toMemberResponse(member))
}

func (h *MemberHandler) SetPassword(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.SetPasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.memberService.SetOwnPassword(c.Request.Context(), a, req.Password); err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Password updated successfully", nil)
}

func (h *MemberHandler) Delete(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	if err := h.memberService.DeleteMember(c.Request.Context(), a, c.Param("id")); err != nil {
		handleError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ============================================
// Member Types
// ============================================

func (h *MemberHandler) CreateType(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.CreateMemberTypeRequest
	if !bind(c, &req) {
		return
	}

	mt, err := h.memberService.CreateMemberType(c.Request.Context(), a, req.Type, req.Permissions)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Member type created successfully", toMemberTypeResponse(mt))
}

func (h *MemberHandler) ListTypes(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	list, err := h.memberService.ListMemberTypes(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	response := make([]models.MemberTypeResponse, len(list))
	for i, mt := range list {
		response[i] = toMemberTypeResponse(mt)
	}
	ok(c, response)
}

func (h *MemberHandler) SetPermissions(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.SetPermissionsRequest
	if !bind(c, &req) {
		return
	}

	mt, err := h.memberService.SetPermissions(c.Request.Context(), a, c.Param("id"), req.Permissions)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toMemberTypeResponse(mt))
}

func (h *MemberHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	member, err := h.memberService.GetMember(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toMemberResponse(member))
}
