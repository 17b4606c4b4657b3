package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/tbphq/members_backend/models"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/gin-gonic/gin"
)

// canActOnMember reports whether the session user may change records of
// the given member. Officials may act on any member.
func canActOnMember(c *gin.Context, memberId int) bool {
	if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); isAdmin {
		return true
	}
	own, ok := utils.GetMemberIdFromContext(c.Request.Context())
	return ok && own > 0 && own == memberId
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeModelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, utils.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func CreateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMember
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		member, err := models.CreateMember(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, member)
	}
}

func UpdateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewMember
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		member, err := models.UpdateMember(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, member)
	}
}

func GetMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if !canActOnMember(c, id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		member, err := models.GetMember(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, member)
	}
}

func ListMemberAddressesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if !canActOnMember(c, id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		addresses, err := models.GetAddressesByMember(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, addresses)
	}
}

func CreateAddressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAddress
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if !canActOnMember(c, input.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		address, err := models.CreateAddress(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, address)
	}
}

func UpdateAddressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewAddress
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if !canActOnMember(c, input.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		address, err := models.UpdateAddress(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, address)
	}
}

func DeleteAddressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		address, err := utils.FetchModel[models.Address](c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		if !canActOnMember(c, address.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if err := models.DeleteAddress(c.Request.Context(), id); err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func ListMemberPhoneNumbersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if !canActOnMember(c, id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		phones, err := models.GetPhoneNumbersByMember(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, phones)
	}
}

func CreatePhoneNumberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPhoneNumber
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if !canActOnMember(c, input.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		phone, err := models.CreatePhoneNumber(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, phone)
	}
}

func UpdatePhoneNumberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewPhoneNumber
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if !canActOnMember(c, input.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		phone, err := models.UpdatePhoneNumber(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, phone)
	}
}

func DeletePhoneNumberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		phone, err := utils.FetchModel[models.PhoneNumber](c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		if !canActOnMember(c, phone.MemberId) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if err := models.DeletePhoneNumber(c.Request.Context(), id); err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
