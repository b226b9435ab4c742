package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core/user"
	filesvc "github.com/trezcool/college/services/files"
)

const studentPhotoField = "studentPhoto"

// courses lists the courses having a fee structure, for the student forms.
func (s *Server) courses(ctx context.Context) ([]string, error) {
	structures, err := s.opts.FeeSvc.QueryStructures(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	courses := make([]string, 0, len(structures))
	for _, st := range structures {
		courses = append(courses, st.Course)
	}
	return courses, nil
}

func (s *Server) addStudentForm(ctx echo.Context) error {
	courses, err := s.courses(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"courses": courses, "action": "/admin/add-student"})
}

func bindNewStudent(ctx echo.Context) (user.NewStudent, error) {
	var ns user.NewStudent
	if isJSON(ctx) {
		err := ctx.Bind(&ns)
		return ns, err
	}

	p, err := newFormParser(ctx)
	if err != nil {
		return ns, err
	}
	ns = user.NewStudent{
		FullName:        p.str("fullName"),
		Username:        p.str("username"),
		Email:           p.str("email"),
		Password:        p.str("password"),
		MobileNumber:    p.str("mobileNumber"),
		GuardianName:    p.str("guardianName"),
		GuardianMobile:  p.str("guardianMobile"),
		Address:         p.str("address"),
		City:            p.str("city"),
		State:           p.str("state"),
		Pincode:         p.str("pincode"),
		DateOfBirth:     p.datePtr("dateOfBirth"),
		Course:          p.str("course"),
		Semester:        p.str("semester"),
		DateOfAdmission: p.date("dateOfAdmission"),
		TotalFees:       p.float("totalFees"),
		FeesPaid:        p.float("feesPaid"),
	}
	return ns, p.err()
}

func (s *Server) addStudent(ctx echo.Context) error {
	setBack(ctx, "/admin/add-student")

	ns, err := bindNewStudent(ctx)
	if err != nil {
		return err
	}
	photo, ok, err := s.saveUpload(ctx, studentPhotoField, filesvc.DirStudents)
	if err != nil {
		return err
	}
	if ok {
		ns.PhotoURL = photo.URL
	}

	if _, err = s.opts.UserSvc.CreateStudent(ctx.Request().Context(), ns); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/manage-students")
}

func (s *Server) manageStudents(ctx echo.Context) error {
	search := ctx.QueryParam("search")

	students := make([]user.User, 0)
	for usr, err := range s.opts.UserSvc.SearchStudents(ctx.Request().Context(), search) {
		if err != nil {
			return errors.Wrap(err, "searching students")
		}
		students = append(students, usr)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"search": search, "students": students})
}

func (s *Server) editStudentForm(ctx echo.Context) error {
	student, err := s.opts.UserSvc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	courses, err := s.courses(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"student": student,
		"courses": courses,
		"action":  "/admin/update-student/" + student.ID,
	})
}

// bindUpdateStudent only sets the fields present in the request. A blank password keeps the current one.
func bindUpdateStudent(ctx echo.Context) (user.UpdateStudent, error) {
	var us user.UpdateStudent
	if isJSON(ctx) {
		err := ctx.Bind(&us)
		return us, err
	}

	p, err := newFormParser(ctx)
	if err != nil {
		return us, err
	}
	us = user.UpdateStudent{
		FullName:        p.strPtr("fullName"),
		Email:           p.strPtr("email"),
		Password:        p.nonEmptyStrPtr("password"),
		MobileNumber:    p.strPtr("mobileNumber"),
		GuardianName:    p.strPtr("guardianName"),
		GuardianMobile:  p.strPtr("guardianMobile"),
		Address:         p.strPtr("address"),
		City:            p.strPtr("city"),
		State:           p.strPtr("state"),
		Pincode:         p.strPtr("pincode"),
		DateOfBirth:     p.datePtr("dateOfBirth"),
		Course:          p.strPtr("course"),
		Semester:        p.strPtr("semester"),
		DateOfAdmission: p.datePtr("dateOfAdmission"),
		TotalFees:       p.floatPtr("totalFees"),
		FeesPaid:        p.floatPtr("feesPaid"),
		LibraryFine:     p.floatPtr("libraryFine"),
		IsActive:        p.boolPtr("isActive"),
	}
	return us, p.err()
}

func (s *Server) updateStudent(ctx echo.Context) error {
	id := ctx.Param("id")
	setBack(ctx, "/admin/edit-student/"+id)

	us, err := bindUpdateStudent(ctx)
	if err != nil {
		return err
	}
	photo, ok, err := s.saveUpload(ctx, studentPhotoField, filesvc.DirStudents)
	if err != nil {
		return err
	}
	if ok {
		us.PhotoURL = &photo.URL
	}

	if _, err = s.opts.UserSvc.UpdateStudent(ctx.Request().Context(), id, us); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/manage-students")
}
