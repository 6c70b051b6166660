package window

import "testing"

func TestParse_Pickup(t *testing.T) {
	r := Parse("EL CLIENTE RETIRA POR COMERCIAL")
	if r.Kind != KindPickup {
		t.Errorf("Kind = %v, want KindPickup", r.Kind)
	}
}

func TestParse_ExplicitRange_AM(t *testing.T) {
	r := Parse("ENTREGAR 10:00-12:00")
	if r.Kind != KindNormal || r.Tag != TagAM {
		t.Errorf("got Kind=%v Tag=%v, want Normal/AM", r.Kind, r.Tag)
	}
	if r.DesdeMin != 600 || r.HastaMin != 720 {
		t.Errorf("DesdeMin/HastaMin = %v/%v, want 600/720", r.DesdeMin, r.HastaMin)
	}
}

func TestParse_ExplicitRange_PM(t *testing.T) {
	r := Parse("ENTREGAR 15:00-17:00")
	if r.Tag != TagPM {
		t.Errorf("Tag = %v, want PM", r.Tag)
	}
}

func TestParse_ExplicitRange_SpansBoth_IsUnspecified(t *testing.T) {
	r := Parse("ENTREGAR 12:30-14:30")
	if r.Tag != TagNone {
		t.Errorf("Tag = %v, want NONE for a range spanning both bands", r.Tag)
	}
}

func TestParse_Desde(t *testing.T) {
	r := Parse("ENTREGAR DESDE LAS 16:00")
	if r.DesdeMin != 16*60 || r.HastaMin != 23*60 {
		t.Errorf("got %v-%v, want 960-1380", r.DesdeMin, r.HastaMin)
	}
}

func TestParse_Hasta(t *testing.T) {
	r := Parse("ENTREGAR HASTA LAS 12:00")
	if r.DesdeMin != 0 || r.HastaMin != 12*60 {
		t.Errorf("got %v-%v, want 0-720", r.DesdeMin, r.HastaMin)
	}
}

func TestParse_VagueManana(t *testing.T) {
	r := Parse("ENTREGAR POR LA MAÑANA")
	if r.Tag != TagAM || r.DesdeMin != 8*60 || r.HastaMin != 13*60 {
		t.Errorf("got %+v, want AM 480-780", r)
	}
}

func TestParse_VagueTarde(t *testing.T) {
	r := Parse("ENTREGAR POR LA TARDE")
	if r.Tag != TagPM || r.DesdeMin != 14*60 || r.HastaMin != 21*60 {
		t.Errorf("got %+v, want PM 840-1260", r)
	}
}

func TestParse_HorarioComercial(t *testing.T) {
	r := Parse("ENTREGAR EN HORARIO COMERCIAL")
	if r.Tag != TagNone || r.DesdeMin != 9*60 || r.HastaMin != 18*60 {
		t.Errorf("got %+v, want NONE 540-1080", r)
	}
}

func TestParse_LlamarAntes(t *testing.T) {
	r := Parse("AVISAR ANTES DE LLEGAR")
	if !r.LlamarAntes {
		t.Error("LlamarAntes should be true")
	}
}

func TestParse_Default(t *testing.T) {
	r := Parse("SIN OBSERVACIONES")
	if r.Kind != KindNormal || r.Tag != TagNone {
		t.Errorf("got %+v, want default Normal/NONE", r)
	}
}

func TestIsWithinConfigWindow(t *testing.T) {
	pickup := Result{Kind: KindPickup}
	if !IsWithinConfigWindow(pickup, "09:00", "14:00") {
		t.Error("pickup windows should always be within the config window")
	}

	none := Result{Kind: KindNormal, Tag: TagNone}
	if !IsWithinConfigWindow(none, "09:00", "14:00") {
		t.Error("unspecified windows should always be within the config window")
	}

	overlapping := Result{Kind: KindNormal, Tag: TagAM, DesdeMin: 10 * 60, HastaMin: 12 * 60}
	if !IsWithinConfigWindow(overlapping, "09:00", "14:00") {
		t.Error("overlapping window should be within the config window")
	}

	disjoint := Result{Kind: KindNormal, Tag: TagPM, DesdeMin: 15 * 60, HastaMin: 17 * 60}
	if IsWithinConfigWindow(disjoint, "09:00", "14:00") {
		t.Error("disjoint window should not be within the config window")
	}
}
