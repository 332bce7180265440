package models

import "fmt"

type SubjectKind string

const (
	SubjectMember SubjectKind = "member"
	SubjectOrg    SubjectKind = "org"
)

// Subject — кому принадлежат баллы: участнику или организации целиком.
// Вариант с тегом вместо двух nullable-ссылок, чтобы «ровно один из двух»
// держался на уровне типа.
type Subject struct {
	Kind     SubjectKind
	MemberID int64 // заполнен только при Kind == SubjectMember
}

func MemberSubject(memberID int64) Subject {
	return Subject{Kind: SubjectMember, MemberID: memberID}
}

func OrgSubject() Subject {
	return Subject{Kind: SubjectOrg}
}

func (s Subject) IsOrg() bool { return s.Kind == SubjectOrg }

// MemberIDPtr — представление для БД: NULL для организации.
func (s Subject) MemberIDPtr() *int64 {
	if s.Kind == SubjectMember {
		id := s.MemberID
		return &id
	}
	return nil
}

func SubjectFromRow(kind string, memberID *int64) (Subject, error) {
	switch SubjectKind(kind) {
	case SubjectMember:
		if memberID == nil {
			return Subject{}, fmt.Errorf("subject kind=member без member_id")
		}
		return MemberSubject(*memberID), nil
	case SubjectOrg:
		return OrgSubject(), nil
	}
	return Subject{}, fmt.Errorf("неизвестный subject kind %q", kind)
}

func (s Subject) String() string {
	if s.IsOrg() {
		return "org"
	}
	return fmt.Sprintf("member:%d", s.MemberID)
}
