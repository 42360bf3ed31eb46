package documents

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Answers carries the onboarding questionnaire fields the templates consume.
type Answers struct {
	OrgName        string
	BusinessID     string
	Industry       string
	EmployeeCount  int
	DPOName        string
	DPOEmail       string
	DataCategories []string
	Purposes       []string
	Recipients     []string
	RetentionYears int
	Date           time.Time
}

var templateFuncs = template.FuncMap{
	"join": func(items []string) string {
		if len(items) == 0 {
			return "לא צוין"
		}
		return strings.Join(items, ", ")
	},
	"hebdate": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
}

var ropaTemplate = template.Must(template.New("ropa").Funcs(templateFuncs).Parse(`רשומת פעילויות עיבוד (ROPA)
{{.OrgName}} (ח.פ. {{.BusinessID}})
תאריך עדכון: {{hebdate .Date}}

1. בעל השליטה במאגר: {{.OrgName}}, תחום פעילות: {{.Industry}}.
2. ממונה הגנת הפרטיות: {{.DPOName}} ({{.DPOEmail}}).
3. קטגוריות מידע מעובדות: {{join .DataCategories}}.
4. מטרות העיבוד: {{join .Purposes}}.
5. מקבלי המידע: {{join .Recipients}}.
6. תקופת שמירה: {{.RetentionYears}} שנים ממועד האיסוף, אלא אם נדרש אחרת על פי דין.
7. אמצעי אבטחה: בקרת הרשאות, הצפנה במנוחה ובתעבורה, תיעוד גישה ונוהל אירועי אבטחה.

מסמך זה נערך בהתאם לדרישות תיקון 13 לחוק הגנת הפרטיות ומתעדכן אחת לשנה לפחות.`))

var policyTemplate = template.Must(template.New("policy").Funcs(templateFuncs).Parse(`מדיניות פרטיות
{{.OrgName}}
עודכן לאחרונה: {{hebdate .Date}}

{{.OrgName}} (ח.פ. {{.BusinessID}}) מכבדת את פרטיות המשתמשים ופועלת בהתאם לחוק
הגנת הפרטיות, התשמ"א-1981, לרבות תיקון 13.

איזה מידע נאסף: {{join .DataCategories}}.
למה המידע משמש: {{join .Purposes}}.
עם מי המידע משותף: {{join .Recipients}}.
כמה זמן המידע נשמר: {{.RetentionYears}} שנים, אלא אם נדרש אחרת על פי דין.

זכויותיך: עיון במידע, תיקונו ומחיקתו בכפוף להוראות הדין. לפניות בנושא פרטיות:
{{.DPOName}}, {{.DPOEmail}}.`))

var appointmentTemplate = template.Must(template.New("appointment").Funcs(templateFuncs).Parse(`כתב מינוי ממונה הגנת הפרטיות
תאריך: {{hebdate .Date}}

הנהלת {{.OrgName}} (ח.פ. {{.BusinessID}}) ממנה בזאת את {{.DPOName}} לתפקיד
ממונה על הגנת הפרטיות בארגון, בהתאם לסעיף 17ב1 לחוק הגנת הפרטיות כנוסחו
בתיקון 13.

במסגרת התפקיד יהיה הממונה אחראי, בין היתר, על: הכנת תוכנית לעמידה בהוראות
הדין, הדרכת עובדים, טיפול בפניות נושאי מידע, ושמירת קשר עם הרשות להגנת
הפרטיות.

הממונה יהיה בלתי תלוי במילוי תפקידו, ידווח ישירות להנהלה, ויועמדו לרשותו
המשאבים הנדרשים. פרטי התקשרות: {{.DPOEmail}}.

_________________________
חתימת מורשה חתימה, {{.OrgName}}`))

var kindTemplates = map[string]*template.Template{
	"ropa":            ropaTemplate,
	"privacy_policy":  policyTemplate,
	"dpo_appointment": appointmentTemplate,
}

var kindTitles = map[string]string{
	"ropa":            "רשומת פעילויות עיבוד",
	"privacy_policy":  "מדיניות פרטיות",
	"dpo_appointment": "כתב מינוי ממונה הגנת הפרטיות",
}

// Generate renders one document kind from questionnaire answers.
func Generate(kind string, a Answers) (title string, body string, err error) {
	tmpl, ok := kindTemplates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown document kind: %s", kind)
	}
	if a.Date.IsZero() {
		a.Date = time.Now()
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, a); err != nil {
		return "", "", err
	}
	return kindTitles[kind], sb.String(), nil
}

// Kinds lists the supported document kinds.
func Kinds() []string {
	return []string{"ropa", "privacy_policy", "dpo_appointment"}
}

// IsKind reports whether kind is a supported document kind.
func IsKind(kind string) bool {
	_, ok := kindTemplates[kind]
	return ok
}
