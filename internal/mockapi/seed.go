package mockapi

import (
	"time"

	"github.com/najibrashidabdi/newkaabe/internal/quiz"
)

// Seeded accounts. The passwords are hashed when the server starts.
const (
	StudentEmail    = "student@kaabe.so"
	StudentPassword = "Student123"
	StaffEmail      = "admin@kaabe.so"
	StaffPassword   = "Admin12345"
	DemoCode        = "KAABE-DEMO-2024"
)

func mcOptions(texts ...string) []quiz.Option {
	options := make([]quiz.Option, len(texts))
	for i, text := range texts {
		options[i] = quiz.Option{Label: string(rune('A' + i)), Text: text}
	}
	return options
}

func multipleChoice(id int, text, correct, explanation string, options ...string) question {
	opts := mcOptions(options...)
	return question{
		ID:          id,
		Type:        quiz.MultipleChoice,
		Text:        text,
		Points:      1,
		Options:     opts,
		Correct:     correct,
		Explanation: explanation,
		Detail:      map[string]any{"options": opts},
	}
}

func seedContent(s *state) {
	s.subjects = []subject{
		{ID: 1, Name: "Biology", Icon: "biology"},
		{ID: 2, Name: "Chemistry", Icon: "chemistry"},
		{ID: 3, Name: "English", Icon: "english"},
	}
	s.years = []year{
		{ID: 10, SubjectID: 1, Year: 2019},
		{ID: 11, SubjectID: 1, Year: 2020, ProOnly: true},
		{ID: 20, SubjectID: 2, Year: 2021},
		{ID: 30, SubjectID: 3, Year: 2022},
	}

	s.quizzes = []quizDef{
		{ID: 100, YearID: 10, Index: 0, Questions: []question{
			multipleChoice(1001, "Which organelle is the powerhouse of the cell?", "Mitochondria",
				"Mitochondria release energy from food during respiration.",
				"Nucleus", "Mitochondria", "Ribosome", "Vacuole"),
			{
				ID:          1002,
				Type:        quiz.FillGaps,
				Text:        "Complete the sentence.",
				Points:      1,
				Correct:     "chlorophyll",
				Explanation: "Chlorophyll absorbs light for photosynthesis.",
				Detail: map[string]any{
					"question_with_gaps": "Plants are green because their leaves contain ____.",
					"answers":            []quiz.GapAnswer{{GapIndex: 0}},
				},
			},
			{
				ID:          1003,
				Type:        quiz.LabelDrawing,
				Text:        "Label the parts of the heart.",
				Points:      2,
				Correct:     `{"A":"aorta","B":"left ventricle"}`,
				Explanation: "The aorta leaves the left ventricle.",
				Detail: map[string]any{
					"image":  "/media/diagrams/heart.png",
					"labels": []quiz.Label{{Label: "A"}, {Label: "B"}},
				},
			},
			{
				ID:          1004,
				Type:        quiz.Structured,
				Text:        "Name the process by which plants lose water through their leaves.",
				Points:      2,
				Correct:     "transpiration",
				Explanation: "Transpiration is the loss of water vapour through the stomata.",
			},
		}},
		{ID: 101, YearID: 10, Index: 1, Questions: []question{
			multipleChoice(1011, "Which blood cells fight infection?", "White blood cells",
				"White blood cells make antibodies and engulf pathogens.",
				"Red blood cells", "Platelets", "White blood cells"),
			multipleChoice(1012, "Where does digestion of starch begin?", "Mouth",
				"Salivary amylase starts breaking down starch in the mouth.",
				"Stomach", "Mouth", "Small intestine"),
		}},
		{ID: 110, YearID: 11, Index: 0, Questions: []question{
			multipleChoice(1101, "What carries oxygen in red blood cells?", "Haemoglobin",
				"Haemoglobin binds oxygen in the lungs.",
				"Plasma", "Haemoglobin", "Insulin"),
		}},
		{ID: 200, YearID: 20, Index: 0, Questions: []question{
			multipleChoice(2001, "What is the chemical symbol for sodium?", "Na",
				"Sodium comes from the Latin natrium.",
				"S", "So", "Na", "Sd"),
			{
				ID:          2002,
				Type:        quiz.WordList,
				Text:        "Fill the gaps with the words given.",
				Points:      2,
				Correct:     "g1=melting|g2=boiling",
				Explanation: "Ice melts at 0°C and water boils at 100°C.",
				Detail: map[string]any{
					"text_with_gaps": "Ice turns to water at its [g1] point and water turns to steam at its [g2] point.",
					"options":        []quiz.Word{{Word: "boiling"}, {Word: "freezing"}, {Word: "melting"}},
					"answers":        []quiz.GapIdentifier{{GapIdentifier: "g1"}, {GapIdentifier: "g2"}},
				},
			},
		}},
		{ID: 300, YearID: 30, Index: 0, Questions: []question{
			{
				ID:          3001,
				Type:        quiz.Synonym,
				Text:        "Give a synonym for \"rapid\".",
				Points:      1,
				Correct:     "fast",
				Explanation: "Rapid means fast or quick.",
			},
			{
				ID:          3002,
				Type:        quiz.MatchWords,
				Text:        "Select the pairs that mean the same.",
				Points:      2,
				Correct:     "happy=joyful|big=large",
				Explanation: "Joyful means happy and large means big.",
				Detail: map[string]any{
					"pairs": []quiz.Pair{
						{Left: "happy", Right: "joyful"},
						{Left: "happy", Right: "sad"},
						{Left: "big", Right: "large"},
						{Left: "big", Right: "tiny"},
					},
				},
			},
			{
				ID:          3003,
				Type:        quiz.Composition,
				Text:        "Write two sentences about your school.",
				Points:      3,
				Explanation: "Compositions are accepted when you write something.",
			},
		}},
	}
}

func seedUsers(s *state, hash func(string) []byte, now time.Time) {
	add := func(u *user) {
		s.nextUserID++
		u.ID = s.nextUserID
		s.users[u.ID] = u
	}

	student := &user{
		Email:       StudentEmail,
		FullName:    "Amina Warsame",
		SchoolName:  "Hiiraan Secondary",
		PhoneNumber: "+252612345678",
		Verified:    true,
		Onboarded:   true,
		Joined:      now.Add(-40 * 24 * time.Hour),
	}
	student.PasswordHash = hash(StudentPassword)
	add(student)

	staff := &user{
		Email:      StaffEmail,
		FullName:   "Kaabe Admin",
		SchoolName: "Kaabe",
		Verified:   true,
		Staff:      true,
		StaffOTP:   true,
		Onboarded:  true,
		Joined:     now.Add(-90 * 24 * time.Hour),
	}
	staff.PasswordHash = hash(StaffPassword)
	add(staff)

	// Leaderboard peers. They have no password and cannot log in.
	add(&user{Email: "hodan@example.com", FullName: "Hodan Ali", SchoolName: "Banadir High", Verified: true,
		Onboarded: true, Joined: now.Add(-30 * 24 * time.Hour), BonusPoints: 42, ProUntil: now.Add(12 * 24 * time.Hour)})
	add(&user{Email: "yusuf@example.com", FullName: "Yusuf Farah", SchoolName: "Hargeisa Model", Verified: true,
		Onboarded: true, Joined: now.Add(-12 * time.Hour), BonusPoints: 17})

	s.addNotification(student.ID, "welcome", "Welcome to Kaabe",
		"Start with a Biology quiz to warm up.", now.Add(-40*24*time.Hour))
	s.addNotification(student.ID, "motivational", "Keep going",
		"Students who practise daily pass more exams.", now.Add(-3*time.Hour))

	s.activation[DemoCode] = false
}
