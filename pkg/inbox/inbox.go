// Package inbox builds the navigation view over digital referrals:
// referrals grouped by specialty, then by receiving doctor, with the
// unread badge aggregated per group. The full index is the
// administrative inbox; narrowing the referral list before building
// yields one doctor's slice.
package inbox

import (
	"sort"
	"strings"

	"refersync/pkg/models"
	"refersync/pkg/unread"
)

// DoctorGroup is one receiving doctor's slot inside a specialty group.
type DoctorGroup struct {
	DoctorID   string            `json:"doctorId"`
	DoctorName string            `json:"doctorName"`
	Referrals  []models.Referral `json:"referrals"`
	// Unread aggregates the unread count of every conversation backing the
	// group's referrals, from the receiving doctor's viewpoint, computed
	// live at build time.
	Unread int `json:"unread"`
}

// SpecialtyGroup holds every receiving doctor with a referral for one
// specialty.
type SpecialtyGroup struct {
	Specialty string        `json:"specialty"`
	Doctors   []DoctorGroup `json:"doctors"`
	Unread    int           `json:"unread"`
}

// Index is the grouped inbox over a referral list.
type Index struct {
	Groups []SpecialtyGroup `json:"groups"`
	Unread int              `json:"unread"`
}

// BuildIndex groups digital referrals by specialty and receiving doctor.
// Printable referrals leave the system on paper and never appear here.
// Unread counts are recomputed from the conversation store on every call
// and written back onto the grouped referral copies; stored advisory
// counts on the input are ignored.
func BuildIndex(repo unread.Repo, refs []models.Referral) Index {
	bySpec := map[string]map[string][]models.Referral{}
	names := map[string]string{}
	// one unread lookup per distinct conversation and viewer, not per referral
	unreadByKey := map[string]int{}

	for _, ref := range refs {
		if ref.Kind != models.KindDigital || ref.ReceivingDoctorID == "" {
			continue
		}
		if ref.ConversationKey != "" {
			ck := ref.ConversationKey + "\x00" + ref.ReceivingDoctorID
			if _, ok := unreadByKey[ck]; !ok {
				unreadByKey[ck] = unread.CountFor(repo, ref.ConversationKey, ref.ReceivingDoctorID)
			}
			ref.UnreadMessages = unreadByKey[ck]
		}
		spec := ref.Specialty
		if bySpec[spec] == nil {
			bySpec[spec] = map[string][]models.Referral{}
		}
		bySpec[spec][ref.ReceivingDoctorID] = append(bySpec[spec][ref.ReceivingDoctorID], ref)
		names[ref.ReceivingDoctorID] = ref.ReceivingDoctorName
	}

	var idx Index
	for spec, byDoc := range bySpec {
		sg := SpecialtyGroup{Specialty: spec}
		for docID, docRefs := range byDoc {
			sort.Slice(docRefs, func(i, j int) bool { return docRefs[i].CreatedTS > docRefs[j].CreatedTS })
			dg := DoctorGroup{DoctorID: docID, DoctorName: names[docID], Referrals: docRefs}
			dg.Unread = groupUnread(docRefs)
			sg.Doctors = append(sg.Doctors, dg)
			sg.Unread += dg.Unread
		}
		sort.Slice(sg.Doctors, func(i, j int) bool { return sg.Doctors[i].DoctorName < sg.Doctors[j].DoctorName })
		idx.Groups = append(idx.Groups, sg)
		idx.Unread += sg.Unread
	}
	sort.Slice(idx.Groups, func(i, j int) bool { return idx.Groups[i].Specialty < idx.Groups[j].Specialty })
	return idx
}

// groupUnread sums the advisory unread of distinct conversations, so
// several referrals sharing one thread count its unread once.
func groupUnread(refs []models.Referral) int {
	total := 0
	seen := map[string]bool{}
	for _, ref := range refs {
		if ref.ConversationKey == "" || seen[ref.ConversationKey] {
			continue
		}
		seen[ref.ConversationKey] = true
		total += ref.UnreadMessages
	}
	return total
}

// Filter narrows an index to what matches the query. Matching is
// case-insensitive substring over specialty, doctor name and patient
// name; an empty query returns the index unchanged. A specialty or
// doctor match keeps the whole group, a patient match keeps individual
// referrals, and unread totals are recomputed over what survives.
func Filter(idx Index, query string) Index {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return idx
	}
	var out Index
	for _, sg := range idx.Groups {
		specMatch := strings.Contains(strings.ToLower(sg.Specialty), q)
		kept := SpecialtyGroup{Specialty: sg.Specialty}
		for _, dg := range sg.Doctors {
			if specMatch || strings.Contains(strings.ToLower(dg.DoctorName), q) {
				kept.Doctors = append(kept.Doctors, dg)
				kept.Unread += dg.Unread
				continue
			}
			var survivors []models.Referral
			for _, ref := range dg.Referrals {
				if strings.Contains(strings.ToLower(ref.PatientName), q) {
					survivors = append(survivors, ref)
				}
			}
			if len(survivors) == 0 {
				continue
			}
			sub := DoctorGroup{DoctorID: dg.DoctorID, DoctorName: dg.DoctorName, Referrals: survivors}
			sub.Unread = groupUnread(survivors)
			kept.Doctors = append(kept.Doctors, sub)
			kept.Unread += sub.Unread
		}
		if len(kept.Doctors) > 0 {
			out.Groups = append(out.Groups, kept)
			out.Unread += kept.Unread
		}
	}
	return out
}
