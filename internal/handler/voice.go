package handler

import (
	"strconv"
	"time"

	"voicestudio/internal/repository"
	"voicestudio/internal/service"
	"voicestudio/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 音色
// ============================================================

func profileFilter(c *gin.Context) repository.VoiceProfileFilter {
	return repository.VoiceProfileFilter{
		Gender:    c.Query("gender"),
		Emotion:   c.Query("emotion"),
		Language:  c.Query("language"),
		IsPremium: queryBool(c, "is_premium"),
		IsActive:  queryBool(c, "is_active"),
		Search:    c.Query("search"),
	}
}

// ListProfiles GET /api/v1/voices/profiles
func (h *Handler) ListProfiles(c *gin.Context) {
	profiles, err := h.voices.ListProfiles(c.Request.Context(), profileFilter(c), false)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, profiles)
}

// GetVoiceProfile GET /api/v1/voices/profiles/:id
func (h *Handler) GetVoiceProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	profile, err := h.voices.GetProfile(c.Request.Context(), id, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, profile)
}

// ListClones GET /api/v1/voices/clones
func (h *Handler) ListClones(c *gin.Context) {
	clones, err := h.voices.ListMyClones(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, clones)
}

// GetClone GET /api/v1/voices/clones/:id
func (h *Handler) GetClone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	clone, err := h.voices.GetClone(c.Request.Context(), currentAccount(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, clone)
}

// CreateClone 上传样本创建克隆音色，multipart 表单
// POST /api/v1/voices/clones
func (h *Handler) CreateClone(c *gin.Context) {
	file, err := c.FormFile("audio_sample")
	if err != nil {
		response.ParamError(c, "audio_sample 不能为空")
		return
	}
	body, err := file.Open()
	if err != nil {
		response.ParamError(c, "读取音频样本失败")
		return
	}
	defer body.Close()

	clone, err := h.voices.CreateClone(c.Request.Context(), currentAccount(c).ID, &service.CloneUpload{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Language:    c.PostForm("language"),
		Filename:    file.Filename,
		Size:        file.Size,
		Body:        body,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, clone)
}

// DeleteClone DELETE /api/v1/voices/clones/:id
func (h *Handler) DeleteClone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.voices.DeleteClone(c.Request.Context(), currentAccount(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "删除成功"})
}

// ============================================================
// 生成与历史
// ============================================================

// Generate 生成语音，试听返回 200，正式生成返回 201
// POST /api/v1/voices/generate
func (h *Handler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.generation.Generate(c.Request.Context(), currentAccount(c).ID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Preview != nil {
		response.Success(c, res.Preview)
		return
	}
	response.Created(c, res.Speech)
}

// ListHistory GET /api/v1/voices/history
func (h *Handler) ListHistory(c *gin.Context) {
	p, size := pagination(c)
	list, total, err := h.history.List(c.Request.Context(), currentAccount(c).ID, c.Query("search"), p, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, total, list)
}

// GetHistory GET /api/v1/voices/history/:id
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	speech, err := h.history.Get(c.Request.Context(), currentAccount(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, speech)
}

// DeleteHistory DELETE /api/v1/voices/history/:id
func (h *Handler) DeleteHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.history.Delete(c.Request.Context(), currentAccount(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "删除成功"})
}

// ============================================================
// 翻译
// ============================================================

// Translate POST /api/v1/voices/translate
func (h *Handler) Translate(c *gin.Context) {
	var req service.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.translation.Translate(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// Transliterate POST /api/v1/voices/transliterate
func (h *Handler) Transliterate(c *gin.Context) {
	var req service.TransliterateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.translation.Transliterate(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// ============================================================
// 管理员：音色、克隆、生成记录
// ============================================================

// AdminListProfiles GET /api/v1/admin/voices/profiles
func (h *Handler) AdminListProfiles(c *gin.Context) {
	profiles, err := h.voices.ListProfiles(c.Request.Context(), profileFilter(c), true)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, profiles)
}

// AdminCreateProfile POST /api/v1/admin/voices/profiles
func (h *Handler) AdminCreateProfile(c *gin.Context) {
	var req service.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	profile, err := h.voices.CreateProfile(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, profile)
}

// AdminUpdateProfile PATCH /api/v1/admin/voices/profiles/:id
func (h *Handler) AdminUpdateProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	profile, err := h.voices.UpdateProfile(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, profile)
}

// AdminDeleteProfile DELETE /api/v1/admin/voices/profiles/:id
func (h *Handler) AdminDeleteProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.voices.DeleteProfile(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "删除成功"})
}

// AdminListClones GET /api/v1/admin/voices/clones?status=
func (h *Handler) AdminListClones(c *gin.Context) {
	p, size := pagination(c)
	clones, total, err := h.voices.ListClones(c.Request.Context(), c.Query("status"), queryBool(c, "is_active"), p, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, total, clones)
}

// AdminApproveClone POST /api/v1/admin/voices/clones/:id/approve
func (h *Handler) AdminApproveClone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	clone, err := h.voices.ApproveClone(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, clone)
}

// AdminRejectClone POST /api/v1/admin/voices/clones/:id/reject
func (h *Handler) AdminRejectClone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	clone, err := h.voices.RejectClone(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, clone)
}

// AdminListSpeeches GET /api/v1/admin/voices/speeches
func (h *Handler) AdminListSpeeches(c *gin.Context) {
	p, size := pagination(c)
	filter := repository.SpeechFilter{Search: c.Query("search")}
	filter.UserID, _ = strconv.ParseInt(c.Query("user_id"), 10, 64)
	filter.VoiceProfileID, _ = strconv.ParseInt(c.Query("voice_profile"), 10, 64)
	filter.VoiceCloneID, _ = strconv.ParseInt(c.Query("voice_clone"), 10, 64)

	list, total, err := h.voices.ListSpeeches(c.Request.Context(), filter, p, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, total, list)
}

// AdminDashboard GET /api/v1/admin/dashboard
func (h *Handler) AdminDashboard(c *gin.Context) {
	d, err := h.voices.Dashboard(c.Request.Context(), time.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, d)
}
